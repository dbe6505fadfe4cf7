package migrations

import (
	"context"
	"fmt"
	"strings"

	"github.com/nonsonwune/admission_cycle/store"
)

// Tables lists every table the service needs, in creation order.
var Tables = []string{
	"MASTER_TABLE",
	"ITERATION_OFFER",
	"FEES_PAID",
	"ITERATION_DATE",
	"WITHDRAWS",
	"LOGS_TABLE",
	"USERS",
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS MASTER_TABLE (
		app_no VARCHAR(20) PRIMARY KEY,
		name   VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ITERATION_OFFER (
		app_no          VARCHAR(20) NOT NULL,
		itr_no          INTEGER NOT NULL,
		offer           VARCHAR(20) NOT NULL,
		scholarship     INTEGER,
		uploaded_by     VARCHAR(255) NOT NULL,
		upload_datetime TIMESTAMP,
		status          VARCHAR(20),
		PRIMARY KEY (app_no, itr_no)
	)`,
	`CREATE TABLE IF NOT EXISTS FEES_PAID (
		app_no                          VARCHAR(20) PRIMARY KEY,
		admission_fees_amount           INTEGER,
		admission_fees_status           INTEGER,
		admission_fees_paid_date        TIMESTAMP,
		admission_fees_uploaded_by      VARCHAR(255),
		admission_fees_upload_date_time TIMESTAMP,
		tuition_fees_amount             INTEGER,
		tuition_fees_status             INTEGER,
		tuition_fees_paid_date          TIMESTAMP,
		tuition_fees_uploaded_by        VARCHAR(255),
		tuition_fees_upload_date_time   TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS ITERATION_DATE (
		iteration INTEGER PRIMARY KEY,
		date      TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS WITHDRAWS (
		app_no           VARCHAR(20) PRIMARY KEY,
		date             TIMESTAMP NOT NULL,
		uploaded_by      VARCHAR(255) NOT NULL,
		upload_date_time TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS LOGS_TABLE (
		file_name   VARCHAR(255) NOT NULL,
		category    VARCHAR(50) NOT NULL,
		upload_date TIMESTAMP NOT NULL,
		uploaded_by VARCHAR(255) NOT NULL,
		remark      VARCHAR(255) NOT NULL,
		ip_address  VARCHAR(50) NOT NULL,
		archive_key VARCHAR(512)
	)`,
	`CREATE TABLE IF NOT EXISTS USERS (
		id              {{serial}},
		name            VARCHAR(255) NOT NULL,
		contact         VARCHAR(15) NOT NULL,
		campus          VARCHAR(255) NOT NULL,
		email           VARCHAR(255) NOT NULL UNIQUE,
		hashed_password VARCHAR(255) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_iteration_offer_itr ON ITERATION_OFFER (itr_no)`,
}

// InitSchema creates any missing table and then verifies that all of them
// can be queried.
func InitSchema(ctx context.Context, s *store.Store) error {
	serial := "SERIAL PRIMARY KEY"
	if s.Dialect() == store.SQLite {
		serial = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	for _, ddl := range schema {
		stmt := strings.ReplaceAll(ddl, "{{serial}}", serial)
		if _, err := s.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return VerifySchema(ctx, s)
}

// VerifySchema checks that all required tables exist
func VerifySchema(ctx context.Context, s *store.Store) error {
	for _, table := range Tables {
		rows, err := s.QueryContext(ctx, fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", table))
		if err != nil {
			return fmt.Errorf("required table %s does not exist: %w", table, err)
		}
		rows.Close()
	}
	return nil
}

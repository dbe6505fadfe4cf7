// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nonsonwune/admission_cycle/migrations"
	"github.com/nonsonwune/admission_cycle/store"
)

// NewStore opens a fresh on-disk sqlite store with the full schema.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "admissions.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := migrations.InitSchema(ctx, s); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return s
}

// Exec runs a statement and fails the test on error.
func Exec(t *testing.T, s *store.Store, query string, args ...any) {
	t.Helper()
	if _, err := s.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

// SeedApplicant inserts a MASTER_TABLE row.
func SeedApplicant(t *testing.T, s *store.Store, appNo, name string) {
	t.Helper()
	Exec(t, s, `INSERT INTO MASTER_TABLE (app_no, name) VALUES (?, ?)`, appNo, name)
}

// SeedOffer inserts an ITERATION_OFFER row. An empty status is stored as NULL.
func SeedOffer(t *testing.T, s *store.Store, appNo string, itrNo int, offer, status string) {
	t.Helper()
	var st any
	if status != "" {
		st = status
	}
	Exec(t, s, `INSERT INTO ITERATION_OFFER (app_no, itr_no, offer, uploaded_by, upload_datetime, status)
		VALUES (?, ?, ?, 'seed', ?, ?)`, appNo, itrNo, offer, time.Now().UTC(), st)
}

// SeedFees inserts a FEES_PAID row with the two status flags.
func SeedFees(t *testing.T, s *store.Store, appNo string, admission, tuition bool) {
	t.Helper()
	Exec(t, s, `INSERT INTO FEES_PAID (app_no, admission_fees_status, tuition_fees_status) VALUES (?, ?, ?)`,
		appNo, flag(admission), flag(tuition))
}

// SeedIteration inserts an ITERATION_DATE row.
func SeedIteration(t *testing.T, s *store.Store, iteration int, date time.Time) {
	t.Helper()
	Exec(t, s, `INSERT INTO ITERATION_DATE (iteration, date) VALUES (?, ?)`, iteration, date.UTC())
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

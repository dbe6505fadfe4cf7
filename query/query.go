// Package query answers the read-only questions of the dashboard and the
// operator CLI. No result is an error: an empty answer is an empty Result.
package query

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nonsonwune/admission_cycle/models"
	"github.com/nonsonwune/admission_cycle/store"
)

// ErrUnknownTable is returned by Table for names that cannot be read.
var ErrUnknownTable = errors.New("table does not exist")

// readable lists the tables exposed by Table. USERS is never readable.
var readable = map[string]bool{
	"MASTER_TABLE":    true,
	"ITERATION_OFFER": true,
	"FEES_PAID":       true,
	"ITERATION_DATE":  true,
	"WITHDRAWS":       true,
	"LOGS_TABLE":      true,
}

// Record is one row keyed by column name.
type Record map[string]any

// Result keeps the column order next to the rows.
type Result struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"data"`
}

// Empty reports whether the result has no rows.
func (r *Result) Empty() bool { return len(r.Rows) == 0 }

// Stats is the dashboard summary.
type Stats struct {
	TotalApplications     int       `json:"totalApplications"`
	AcceptedStudents      int       `json:"acceptedStudents"`
	LatestIterationNumber int       `json:"latestIterationNumber"`
	LatestIterationDate   time.Time `json:"latestIterationDate"`
}

// IterationSummary lists every iteration on file.
type IterationSummary struct {
	Count      int                    `json:"count"`
	Latest     *models.IterationDate  `json:"latest,omitempty"`
	Iterations []models.IterationDate `json:"iterations"`
}

// Service runs queries against the store.
type Service struct {
	db store.Queryer
}

// NewService returns a Service reading through db.
func NewService(db store.Queryer) *Service {
	return &Service{db: db}
}

// Stats counts applicants, applicants whose latest offer is accepted in any
// form, and reports the latest iteration.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM MASTER_TABLE`).Scan(&st.TotalApplications); err != nil {
		return st, fmt.Errorf("count applicants: %w", err)
	}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ITERATION_OFFER o
		JOIN (SELECT app_no, MAX(itr_no) AS itr_no FROM ITERATION_OFFER GROUP BY app_no) latest
			ON latest.app_no = o.app_no AND latest.itr_no = o.itr_no
		WHERE o.status LIKE '%accept%'`).Scan(&st.AcceptedStudents)
	if err != nil {
		return st, fmt.Errorf("count accepted: %w", err)
	}
	it, ok, err := store.LatestIteration(ctx, s.db)
	if err != nil {
		return st, err
	}
	if ok {
		st.LatestIterationNumber = it.Iteration
		st.LatestIterationDate = it.Date
	}
	return st, nil
}

// Fees returns the fee record of appNo; the result is empty when there is
// none.
func (s *Service) Fees(ctx context.Context, appNo string) (*Result, error) {
	return s.query(ctx, `SELECT * FROM FEES_PAID WHERE app_no = ?`, appNo)
}

// Students finds applicants whose app_no or name contains term, ignoring
// case, together with all their offers.
func (s *Service) Students(ctx context.Context, term string) (*Result, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(term))) + "%"
	return s.query(ctx, `
		SELECT m.app_no, m.name, o.itr_no, o.offer, o.scholarship, o.status
		FROM MASTER_TABLE m
		LEFT JOIN ITERATION_OFFER o ON o.app_no = m.app_no
		WHERE LOWER(m.app_no) LIKE ? ESCAPE '\' OR LOWER(m.name) LIKE ? ESCAPE '\'
		ORDER BY m.app_no, o.itr_no`, pattern, pattern)
}

// Iteration lists the offers of iteration n with applicant names.
func (s *Service) Iteration(ctx context.Context, n int) (*Result, error) {
	return s.query(ctx, `
		SELECT o.app_no, m.name, o.itr_no, o.offer, o.scholarship, o.status
		FROM ITERATION_OFFER o
		LEFT JOIN MASTER_TABLE m ON m.app_no = o.app_no
		WHERE o.itr_no = ?
		ORDER BY o.app_no`, n)
}

// IterationSummary counts the iterations on file.
func (s *Service) IterationSummary(ctx context.Context) (IterationSummary, error) {
	sum := IterationSummary{Iterations: []models.IterationDate{}}
	its, err := store.IterationDates(ctx, s.db)
	if err != nil {
		return sum, err
	}
	if its != nil {
		sum.Iterations = its
	}
	sum.Count = len(its)
	latest, ok, err := store.LatestIteration(ctx, s.db)
	if err != nil {
		return sum, err
	}
	if ok {
		sum.Latest = &latest
	}
	return sum, nil
}

// Table returns every row of a readable table.
func (s *Service) Table(ctx context.Context, name string) (*Result, error) {
	if !readable[name] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return s.query(ctx, "SELECT * FROM "+name)
}

// Readable reports whether Table serves name.
func Readable(name string) bool { return readable[name] }

func (s *Service) query(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) (*Result, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	res := &Result{Columns: cols, Rows: []Record{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				rec[col] = string(b)
				continue
			}
			rec[col] = values[i]
		}
		res.Rows = append(res.Rows, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return res, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

package migrations_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nonsonwune/admission_cycle/migrations"
	"github.com/nonsonwune/admission_cycle/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "schema.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInitSchemaIsRepeatable(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := migrations.InitSchema(ctx, s); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
	}

	if _, err := s.ExecContext(ctx,
		`INSERT INTO USERS (name, contact, campus, email, hashed_password) VALUES ('a', '1', 'Goa', 'a@x.io', 'h')`); err != nil {
		t.Fatalf("insert user: %v", err)
	}
	if _, err := s.ExecContext(ctx,
		`INSERT INTO USERS (name, contact, campus, email, hashed_password) VALUES ('b', '2', 'Goa', 'a@x.io', 'h')`); err == nil {
		t.Fatal("expected duplicate email to violate the unique constraint")
	}
}

func TestVerifySchemaReportsMissingTable(t *testing.T) {
	s := openStore(t)
	err := migrations.VerifySchema(context.Background(), s)
	if err == nil {
		t.Fatal("expected an error on an empty database")
	}
}

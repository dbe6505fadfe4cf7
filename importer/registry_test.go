package importer

import (
	"errors"
	"testing"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	want := []string{"FEES_PAID", "ITERATION_OFFER", "MASTER_TABLE", "WITHDRAWS"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names = %v, want %v", got, want)
		}
	}
	offer, err := r.Lookup("ITERATION_OFFER")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := offer.Column("status"); ok {
		t.Fatal("status must not be uploadable")
	}
}

func TestLookupIsCaseSensitive(t *testing.T) {
	r := DefaultRegistry()
	for _, name := range []string{"fees_paid", "USERS", "LOGS_TABLE", ""} {
		_, err := r.Lookup(name)
		var ie *ImportError
		if !errors.As(err, &ie) || ie.Code != CodeUnknownTable {
			t.Errorf("Lookup(%q) = %v, want %s", name, err, CodeUnknownTable)
		}
	}
}

func TestNewRegistryValidates(t *testing.T) {
	cases := map[string]*Table{
		"no key": {Name: "T", Columns: []Column{{Name: "a"}}},
		"key not a column": {Name: "T", Columns: []Column{{Name: "a"}},
			PrimaryKey: []string{"b"}},
		"not null not a column": {Name: "T", Columns: []Column{{Name: "a"}},
			PrimaryKey: []string{"a"}, NotNull: []string{"c"}},
		"duplicate column": {Name: "T", Columns: []Column{{Name: "a"}, {Name: "a"}},
			PrimaryKey: []string{"a"}},
		"stamped key": {Name: "T", Columns: []Column{{Name: "a", Stamp: StampUploader}},
			PrimaryKey: []string{"a"}},
	}
	for name, table := range cases {
		if _, err := NewRegistry(table); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	ok := &Table{Name: "T", Columns: []Column{{Name: "a"}}, PrimaryKey: []string{"a"}}
	if _, err := NewRegistry(ok, ok); err == nil {
		t.Error("expected error for duplicate table")
	}
}

func TestBuildUpsert(t *testing.T) {
	r := DefaultRegistry()
	master, _ := r.Lookup("MASTER_TABLE")
	if got, want := buildUpsert(master),
		"INSERT INTO MASTER_TABLE (app_no, name) VALUES (?, ?) ON CONFLICT (app_no) DO NOTHING"; got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
	withdraws, _ := r.Lookup("WITHDRAWS")
	want := "INSERT INTO WITHDRAWS (app_no, date, uploaded_by, upload_date_time) VALUES (?, ?, ?, ?) " +
		"ON CONFLICT (app_no) DO UPDATE SET date = EXCLUDED.date, uploaded_by = EXCLUDED.uploaded_by, " +
		"upload_date_time = EXCLUDED.upload_date_time"
	if got := buildUpsert(withdraws); got != want {
		t.Fatalf("got  %s\nwant %s", got, want)
	}
}

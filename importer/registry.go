package importer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nonsonwune/admission_cycle/status"
	"github.com/nonsonwune/admission_cycle/store"
)

// ColumnKind selects how a CSV cell is converted before storage.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInt
	KindFlag
	KindTimestamp
)

func (k ColumnKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFlag:
		return "flag"
	case KindTimestamp:
		return "timestamp"
	default:
		return "text"
	}
}

// Stamp marks a column the pipeline fills itself.
type Stamp int

const (
	StampNone Stamp = iota
	// StampUploader fills the uploader identity when the cell is blank.
	StampUploader
	// StampNow always writes the ingestion time.
	StampNow
	// StampNowIfBlank writes the ingestion time when the cell is blank.
	StampNowIfBlank
)

// Column describes one uploadable column.
type Column struct {
	Name  string
	Kind  ColumnKind
	Stamp Stamp
}

// Row is one converted record. Line is the line of the record in the source
// file, or its position for in-memory batches.
type Row struct {
	Line   int
	Values map[string]any
}

// Text returns the value of a text column, or "" when NULL.
func (r Row) Text(col string) string {
	s, _ := r.Values[col].(string)
	return s
}

// Int returns the value of an int column.
func (r Row) Int(col string) (int64, bool) {
	n, ok := r.Values[col].(int64)
	return n, ok
}

// CascadeContext is what a cascade hook sees. Everything it does goes
// through Tx so it commits or rolls back with the upsert.
type CascadeContext struct {
	Tx     *store.Tx
	Rows   []Row
	Now    time.Time
	Engine *status.Engine
	Result *ImportResult
}

// CascadeFunc runs after the rows of a batch are upserted.
type CascadeFunc func(ctx context.Context, c *CascadeContext) error

// Table describes an uploadable table.
type Table struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
	// NotNull lists non-key columns whose cells may not be blank.
	NotNull []string
	// Immutable tables keep the stored row when a key is uploaded again.
	Immutable bool
	Cascade   CascadeFunc
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// RequiredColumns lists the columns every upload must carry: the primary
// key followed by every column the pipeline does not stamp itself.
func (t *Table) RequiredColumns() []string {
	out := append([]string(nil), t.PrimaryKey...)
	for _, c := range t.Columns {
		if c.Stamp == StampNone && !contains(out, c.Name) {
			out = append(out, c.Name)
		}
	}
	return out
}

func (t *Table) isNotNull(col string) bool { return contains(t.NotNull, col) }

func (t *Table) isKey(col string) bool { return contains(t.PrimaryKey, col) }

func (t *Table) validate() error {
	if t.Name == "" {
		return fmt.Errorf("table without name")
	}
	if len(t.PrimaryKey) == 0 {
		return fmt.Errorf("table %s: no primary key", t.Name)
	}
	seen := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		if seen[c.Name] {
			return fmt.Errorf("table %s: duplicate column %s", t.Name, c.Name)
		}
		seen[c.Name] = true
	}
	for _, k := range t.PrimaryKey {
		c, ok := t.Column(k)
		if !ok {
			return fmt.Errorf("table %s: primary key %s is not a column", t.Name, k)
		}
		if c.Stamp != StampNone {
			return fmt.Errorf("table %s: primary key %s cannot be stamped", t.Name, k)
		}
	}
	for _, n := range t.NotNull {
		if !seen[n] {
			return fmt.Errorf("table %s: not null column %s is not a column", t.Name, n)
		}
	}
	return nil
}

// Registry maps table identifiers to their descriptors.
type Registry struct {
	tables map[string]*Table
}

// NewRegistry validates every table and builds a registry.
func NewRegistry(tables ...*Table) (*Registry, error) {
	r := &Registry{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.tables[t.Name]; dup {
			return nil, fmt.Errorf("table %s registered twice", t.Name)
		}
		r.tables[t.Name] = t
	}
	return r, nil
}

// Lookup finds a table by its exact identifier.
func (r *Registry) Lookup(name string) (*Table, error) {
	t, ok := r.tables[name]
	if !ok {
		return nil, newImportError(CodeUnknownTable, map[string]string{"table": name},
			"table %s does not exist or cannot be uploaded", name)
	}
	return t, nil
}

// Names lists the registered tables in alphabetical order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.tables))
	for name := range r.tables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry describes the uploadable tables of the admission cycle.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		&Table{
			Name: "MASTER_TABLE",
			Columns: []Column{
				{Name: "app_no", Kind: KindText},
				{Name: "name", Kind: KindText},
			},
			PrimaryKey: []string{"app_no"},
			NotNull:    []string{"name"},
			Immutable:  true,
		},
		&Table{
			Name: "ITERATION_OFFER",
			Columns: []Column{
				{Name: "app_no", Kind: KindText},
				{Name: "itr_no", Kind: KindInt},
				{Name: "offer", Kind: KindText},
				{Name: "scholarship", Kind: KindInt},
				{Name: "uploaded_by", Kind: KindText, Stamp: StampUploader},
				{Name: "upload_datetime", Kind: KindTimestamp, Stamp: StampNow},
			},
			PrimaryKey: []string{"app_no", "itr_no"},
			NotNull:    []string{"offer"},
			Cascade:    offerCascade,
		},
		&Table{
			Name: "FEES_PAID",
			Columns: []Column{
				{Name: "app_no", Kind: KindText},
				{Name: "admission_fees_amount", Kind: KindInt},
				{Name: "admission_fees_status", Kind: KindFlag},
				{Name: "admission_fees_paid_date", Kind: KindTimestamp},
				{Name: "admission_fees_uploaded_by", Kind: KindText, Stamp: StampUploader},
				{Name: "admission_fees_upload_date_time", Kind: KindTimestamp, Stamp: StampNow},
				{Name: "tuition_fees_amount", Kind: KindInt},
				{Name: "tuition_fees_status", Kind: KindFlag},
				{Name: "tuition_fees_paid_date", Kind: KindTimestamp},
				{Name: "tuition_fees_uploaded_by", Kind: KindText, Stamp: StampUploader},
				{Name: "tuition_fees_upload_date_time", Kind: KindTimestamp, Stamp: StampNow},
			},
			PrimaryKey: []string{"app_no"},
			Cascade:    feesCascade,
		},
		&Table{
			Name: "WITHDRAWS",
			Columns: []Column{
				{Name: "app_no", Kind: KindText},
				{Name: "date", Kind: KindTimestamp, Stamp: StampNowIfBlank},
				{Name: "uploaded_by", Kind: KindText, Stamp: StampUploader},
				{Name: "upload_date_time", Kind: KindTimestamp, Stamp: StampNow},
			},
			PrimaryKey: []string{"app_no"},
			Cascade:    withdrawCascade,
		},
	)
	if err != nil {
		panic(fmt.Sprintf("invalid table registry: %v", err))
	}
	return r
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

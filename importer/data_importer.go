// Package importer ingests uploaded CSV files into the record store. Every
// batch is validated against a typed table registry, upserted in a single
// transaction together with its cascades, and recorded in the audit log.
package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nonsonwune/admission_cycle/archive"
	"github.com/nonsonwune/admission_cycle/models"
	"github.com/nonsonwune/admission_cycle/status"
	"github.com/nonsonwune/admission_cycle/store"
)

// Batch results reported to the BatchObserver and written to the audit log.
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// BatchObserver is told about every finished batch; the metrics package
// implements it.
type BatchObserver interface {
	ObserveBatch(table, result string, rows int)
}

// ImportConfig holds the collaborators of a DataImporter. Only Registry is
// required; Engine defaults to one without an observer.
type ImportConfig struct {
	Registry *Registry
	Engine   *status.Engine
	Archive  archive.Store
	Metrics  BatchObserver
	Now      func() time.Time
}

// DataImporter runs uploads against the store.
type DataImporter struct {
	store  *store.Store
	config ImportConfig
}

// NewDataImporter builds an importer over s.
func NewDataImporter(s *store.Store, config ImportConfig) *DataImporter {
	if config.Registry == nil {
		config.Registry = DefaultRegistry()
	}
	if config.Engine == nil {
		config.Engine = status.NewEngine(nil)
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &DataImporter{store: s, config: config}
}

// Registry returns the table registry in use.
func (d *DataImporter) Registry() *Registry { return d.config.Registry }

// Upload is one uploaded file.
type Upload struct {
	Table       string
	FileName    string
	ContentType string
	Body        io.Reader
	UploadedBy  string
	ClientAddr  string
}

// ImportResult describes a committed batch.
type ImportResult struct {
	Table      string         `json:"table"`
	FileName   string         `json:"file_name"`
	Rows       int            `json:"rows"`
	Iteration  int            `json:"iteration,omitempty"`
	Derivation *status.Report `json:"derivation,omitempty"`
	Warnings   []string       `json:"warnings,omitempty"`
	ArchiveKey string         `json:"archive_key,omitempty"`
}

func (r *ImportResult) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("Warning: %s: %s", r.Table, msg)
	r.Warnings = append(r.Warnings, msg)
}

// batch is a parsed upload waiting to be converted and stored.
type batch struct {
	table      string
	fileName   string
	uploadedBy string
	clientAddr string
	archiveKey string
	headers    []string
	records    [][]string
	lines      []int
}

// ImportData archives and ingests an uploaded CSV file.
func (d *DataImporter) ImportData(ctx context.Context, up Upload) (*ImportResult, error) {
	b := batch{
		table:      up.Table,
		fileName:   up.FileName,
		uploadedBy: up.UploadedBy,
		clientAddr: up.ClientAddr,
	}
	if _, err := d.config.Registry.Lookup(up.Table); err != nil {
		return nil, d.fail(ctx, b, 0, err)
	}
	contents, err := io.ReadAll(up.Body)
	if err != nil {
		return nil, d.fail(ctx, b, 0, fmt.Errorf("error reading upload: %w", err))
	}
	b.archiveKey = d.archiveUpload(ctx, up, contents)

	b.headers, b.records, b.lines, err = readCSV(bytes.NewReader(contents))
	if err != nil {
		return nil, d.fail(ctx, b, 0, err)
	}
	return d.ingest(ctx, b)
}

// ImportRecords ingests in-memory rows, each a column to cell mapping.
func (d *DataImporter) ImportRecords(ctx context.Context, table string, rows []map[string]string, uploadedBy, clientAddr, fileName string) (*ImportResult, error) {
	b := batch{table: table, fileName: fileName, uploadedBy: uploadedBy, clientAddr: clientAddr}
	t, err := d.config.Registry.Lookup(table)
	if err != nil {
		return nil, d.fail(ctx, b, 0, err)
	}
	if len(rows) == 0 {
		return nil, d.fail(ctx, b, 0, newImportError(CodeEmptyFile, nil, "no rows to import"))
	}
	for i, row := range rows {
		var missing []string
		for _, col := range t.RequiredColumns() {
			if _, ok := row[col]; !ok {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			return nil, d.fail(ctx, b, len(rows), newImportError(CodeMissingColumns,
				map[string]string{"row": strconv.Itoa(i + 1), "columns": strings.Join(missing, ",")},
				"missing required columns: %v", missing))
		}
	}
	b.headers, b.records, b.lines = flattenRecords(rows)
	return d.ingest(ctx, b)
}

// ValidationReport is the outcome of a dry run.
type ValidationReport struct {
	Table    string    `json:"table"`
	Rows     int       `json:"rows"`
	Valid    bool      `json:"valid"`
	Problems []Problem `json:"problems,omitempty"`
	Ignored  []string  `json:"ignored_columns,omitempty"`
}

// Validate parses and converts an upload without touching the store. Batch
// level problems are returned as an *ImportError; cell problems are listed
// in the report.
func (d *DataImporter) Validate(table string, body io.Reader) (*ValidationReport, error) {
	t, err := d.config.Registry.Lookup(table)
	if err != nil {
		return nil, err
	}
	headers, records, lines, err := readCSV(body)
	if err != nil {
		return nil, err
	}
	if err := validateHeaders(t, headers); err != nil {
		return nil, err
	}
	_, problems := convertRecords(t, headers, records, lines)
	return &ValidationReport{
		Table:    table,
		Rows:     len(records),
		Valid:    len(problems) == 0 && len(records) > 0,
		Problems: problems,
		Ignored:  ignoredColumns(t, headers),
	}, nil
}

func (d *DataImporter) ingest(ctx context.Context, b batch) (*ImportResult, error) {
	t, err := d.config.Registry.Lookup(b.table)
	if err != nil {
		return nil, d.fail(ctx, b, 0, err)
	}
	res := &ImportResult{Table: t.Name, FileName: b.fileName, ArchiveKey: b.archiveKey}

	if err := validateHeaders(t, b.headers); err != nil {
		return nil, d.fail(ctx, b, len(b.records), err)
	}
	if ignored := ignoredColumns(t, b.headers); len(ignored) > 0 {
		res.warn("ignored columns not in %s: %v", t.Name, ignored)
	}
	if len(b.records) == 0 {
		return nil, d.fail(ctx, b, 0, newImportError(CodeEmptyFile, nil, "file has no data rows"))
	}
	rows, problems := convertRecords(t, b.headers, b.records, b.lines)
	if len(problems) > 0 {
		return nil, d.fail(ctx, b, len(b.records), problems[0].importError(len(problems)))
	}

	now := d.config.Now().UTC()
	uploader := b.uploadedBy
	if uploader == "" {
		uploader = "unknown"
	}
	for i := range rows {
		stampRow(t, &rows[i], uploader, now)
	}

	query := buildUpsert(t)
	err = d.store.WithTx(ctx, func(tx *store.Tx) error {
		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, query, rowArgs(t, row)...); err != nil {
				return fmt.Errorf("upsert %s row at line %d: %w", t.Name, row.Line, err)
			}
		}
		if t.Cascade != nil {
			cc := &CascadeContext{Tx: tx, Rows: rows, Now: now, Engine: d.config.Engine, Result: res}
			if err := t.Cascade(ctx, cc); err != nil {
				return err
			}
		}
		return store.AppendLog(ctx, tx, d.logRow(b, now, ResultSuccess))
	})
	if err != nil {
		return nil, d.fail(ctx, b, len(rows), err)
	}

	res.Rows = len(rows)
	d.observe(t.Name, ResultSuccess, len(rows))
	d.printImportSummary(res)
	return res, nil
}

// fail records a rejected or failed batch after its transaction has rolled
// back and returns err unchanged.
func (d *DataImporter) fail(ctx context.Context, b batch, rows int, err error) error {
	result, remark := ResultFailed, ResultFailed
	if ie, ok := AsImportError(err); ok {
		result = ResultRejected
		remark = "rejected: " + ie.Code
		log.Printf("Rejected upload of %s (%s): %v", b.table, b.fileName, err)
	} else {
		log.Printf("Error importing %s (%s): %v", b.table, b.fileName, err)
	}
	d.observe(b.table, result, rows)

	// the log row must land even when the request was cancelled
	logCtx := context.WithoutCancel(ctx)
	if logErr := store.AppendLog(logCtx, d.store, d.logRow(b, d.config.Now().UTC(), remark)); logErr != nil {
		log.Printf("Error writing audit log for %s: %v", b.fileName, logErr)
	}
	return err
}

func (d *DataImporter) logRow(b batch, at time.Time, remark string) models.UploadLog {
	l := models.UploadLog{
		FileName:   truncate(b.fileName, 255),
		Category:   truncate(b.table, 50),
		UploadDate: at,
		UploadedBy: truncate(b.uploadedBy, 255),
		Remark:     truncate(remark, 255),
		IPAddress:  truncate(b.clientAddr, 50),
	}
	if b.archiveKey != "" {
		l.ArchiveKey.String, l.ArchiveKey.Valid = b.archiveKey, true
	}
	return l
}

func (d *DataImporter) archiveUpload(ctx context.Context, up Upload, contents []byte) string {
	if d.config.Archive == nil || d.config.Archive.Driver() == archive.DriverNone {
		return ""
	}
	key := archive.UploadKey(up.Table, up.FileName, d.config.Now())
	if err := d.config.Archive.Put(ctx, key, bytes.NewReader(contents), up.ContentType); err != nil {
		log.Printf("Warning: could not archive %s: %v", up.FileName, err)
		return ""
	}
	return key
}

// OpenArchived returns the bytes of an archived upload with its audit row.
// Only keys recorded in LOGS_TABLE can be read.
func (d *DataImporter) OpenArchived(ctx context.Context, key string) (io.ReadCloser, models.UploadLog, error) {
	l, found, err := store.UploadLogByArchiveKey(ctx, d.store, key)
	if err != nil {
		return nil, l, err
	}
	if !found || d.config.Archive == nil {
		return nil, l, fmt.Errorf("%s: %w", key, archive.ErrNotFound)
	}
	rc, err := d.config.Archive.Get(ctx, key)
	if err != nil {
		return nil, l, err
	}
	return rc, l, nil
}

func (d *DataImporter) observe(table, result string, rows int) {
	if d.config.Metrics != nil {
		d.config.Metrics.ObserveBatch(table, result, rows)
	}
}

func (d *DataImporter) printImportSummary(res *ImportResult) {
	log.Printf("Import Summary: %s (%s)", res.Table, res.FileName)
	log.Printf("Rows upserted: %d", res.Rows)
	if rep := res.Derivation; rep != nil {
		log.Printf("Statuses derived at iteration %d: %d updated, %d skipped", rep.Iteration, rep.Updated, len(rep.Skipped))
	}
	for _, w := range res.Warnings {
		log.Printf("- %s", w)
	}
}

// readCSV returns the header, the data records and the line each record
// starts on.
func readCSV(r io.Reader) ([]string, [][]string, []int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil, newImportError(CodeEmptyFile, nil, "file is empty")
	}
	if err != nil {
		return nil, nil, nil, malformed(err)
	}
	for i, h := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var records [][]string
	var lines []int
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, nil, malformed(err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return headers, records, lines, nil
}

func malformed(err error) *ImportError {
	ctx := map[string]string{}
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		ctx["line"] = strconv.Itoa(pe.Line)
	}
	return newImportError(CodeMalformedFile, ctx, "error reading csv: %v", err)
}

// flattenRecords turns maps into a header plus records. Keys absent from a
// row become blank cells.
func flattenRecords(rows []map[string]string) ([]string, [][]string, []int) {
	seen := map[string]bool{}
	var headers []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	sort.Strings(headers)
	records := make([][]string, len(rows))
	lines := make([]int, len(rows))
	for i, row := range rows {
		rec := make([]string, len(headers))
		for j, h := range headers {
			rec[j] = row[h]
		}
		records[i] = rec
		lines[i] = i + 1
	}
	return headers, records, lines
}

// validateHeaders checks that every required column is in the header.
// Matching is case-sensitive.
func validateHeaders(t *Table, headers []string) error {
	var missing []string
	for _, required := range t.RequiredColumns() {
		if getColumnIndex(headers, required) == -1 {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return newImportError(CodeMissingColumns,
			map[string]string{"table": t.Name, "columns": strings.Join(missing, ",")},
			"missing required columns: %v", missing)
	}
	return nil
}

func ignoredColumns(t *Table, headers []string) []string {
	var out []string
	for _, h := range headers {
		if _, ok := t.Column(h); !ok {
			out = append(out, h)
		}
	}
	return out
}

// getColumnIndex returns the index of a column in headers, or -1.
func getColumnIndex(headers []string, columnName string) int {
	for i, header := range headers {
		if header == columnName {
			return i
		}
	}
	return -1
}

// Problem is a cell that cannot be stored.
type Problem struct {
	Line    int    `json:"line"`
	Column  string `json:"column"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (p Problem) importError(total int) *ImportError {
	return newImportError(p.Code, map[string]string{
		"line":     strconv.Itoa(p.Line),
		"column":   p.Column,
		"problems": strconv.Itoa(total),
	}, "line %d, column %s: %s", p.Line, p.Column, p.Message)
}

// convertRecords converts every cell of the declared columns present in the
// header. All problems are collected.
func convertRecords(t *Table, headers []string, records [][]string, lines []int) ([]Row, []Problem) {
	index := make(map[string]int, len(t.Columns))
	for _, c := range t.Columns {
		if i := getColumnIndex(headers, c.Name); i != -1 {
			index[c.Name] = i
		}
	}

	rows := make([]Row, 0, len(records))
	var problems []Problem
	for n, record := range records {
		row := Row{Line: lines[n], Values: make(map[string]any, len(t.Columns))}
		for _, c := range t.Columns {
			i, ok := index[c.Name]
			if !ok || i >= len(record) {
				row.Values[c.Name] = nil
				continue
			}
			v, err := transformFor(c.Kind)(record[i])
			if err != nil {
				problems = append(problems, Problem{Line: row.Line, Column: c.Name, Code: CodeInvalidValue, Message: err.Error()})
				continue
			}
			if v == nil && t.isKey(c.Name) {
				problems = append(problems, Problem{Line: row.Line, Column: c.Name, Code: CodeMissingKey, Message: "primary key is blank"})
				continue
			}
			if v == nil && t.isNotNull(c.Name) {
				problems = append(problems, Problem{Line: row.Line, Column: c.Name, Code: CodeMissingValue, Message: "value is required"})
				continue
			}
			row.Values[c.Name] = v
		}
		rows = append(rows, row)
	}
	return rows, problems
}

func stampRow(t *Table, row *Row, uploader string, now time.Time) {
	for _, c := range t.Columns {
		switch c.Stamp {
		case StampUploader:
			if row.Values[c.Name] == nil {
				row.Values[c.Name] = uploader
			}
		case StampNow:
			row.Values[c.Name] = now
		case StampNowIfBlank:
			if row.Values[c.Name] == nil {
				row.Values[c.Name] = now
			}
		}
	}
}

// buildUpsert writes every declared column. Immutable tables keep the stored
// row on conflict.
func buildUpsert(t *Table) string {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
		marks[i] = "?"
	}
	conflict := "DO NOTHING"
	if !t.Immutable {
		if set := buildUpdateClause(cols, t.PrimaryKey); set != "" {
			conflict = "DO UPDATE SET " + set
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		t.Name, strings.Join(cols, ", "), strings.Join(marks, ", "),
		strings.Join(t.PrimaryKey, ", "), conflict)
}

func buildUpdateClause(columns, primaryKey []string) string {
	updates := make([]string, 0, len(columns))
	for _, col := range columns {
		if !contains(primaryKey, col) {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return strings.Join(updates, ", ")
}

func rowArgs(t *Table, row Row) []any {
	args := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		args[i] = row.Values[c.Name]
	}
	return args
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

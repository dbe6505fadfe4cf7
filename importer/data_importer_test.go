package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nonsonwune/admission_cycle/archive"
	"github.com/nonsonwune/admission_cycle/models"
	"github.com/nonsonwune/admission_cycle/store"
	"github.com/nonsonwune/admission_cycle/testutil"
)

var clock = time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)

type batchCounter map[string]int

func (b batchCounter) ObserveBatch(table, result string, rows int) { b[table+"/"+result]++ }

func newImporter(t *testing.T) (*DataImporter, *store.Store) {
	t.Helper()
	s := testutil.NewStore(t)
	return NewDataImporter(s, ImportConfig{Now: func() time.Time { return clock }}), s
}

func upload(table, body string) Upload {
	return Upload{Table: table, FileName: strings.ToLower(table) + ".csv", Body: strings.NewReader(body), UploadedBy: "admin@example.com", ClientAddr: "10.0.0.1"}
}

func count(t *testing.T, s *store.Store, query string, args ...any) int {
	t.Helper()
	var n int
	if err := s.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("%s: %v", query, err)
	}
	return n
}

const feesHeader = "app_no,admission_fees_amount,admission_fees_status,admission_fees_paid_date," +
	"tuition_fees_amount,tuition_fees_status,tuition_fees_paid_date\n"

// feesCSV builds a FEES_PAID upload from "app_no,admission,tuition" triples
// with blank amounts and dates.
func feesCSV(rows ...string) string {
	var b strings.Builder
	b.WriteString(feesHeader)
	for _, r := range rows {
		f := strings.Split(r, ",")
		fmt.Fprintf(&b, "%s,,%s,,,%s,\n", f[0], f[1], f[2])
	}
	return b.String()
}

func wantCode(t *testing.T, err error, code string) *ImportError {
	t.Helper()
	var ie *ImportError
	if !errors.As(err, &ie) {
		t.Fatalf("expected *ImportError %s, got %v", code, err)
	}
	if ie.Code != code {
		t.Fatalf("code = %s, want %s (%s)", ie.Code, code, ie.Message)
	}
	return ie
}

func statusOf(t *testing.T, s *store.Store, appNo string, itr int) string {
	t.Helper()
	o, ok, err := store.OfferAt(context.Background(), s, appNo, itr)
	if err != nil || !ok {
		t.Fatalf("OfferAt(%s, %d): ok=%v err=%v", appNo, itr, ok, err)
	}
	return o.Status.String
}

func TestImportMissingColumnWritesNothing(t *testing.T) {
	d, s := newImporter(t)
	_, err := d.ImportData(context.Background(), upload("FEES_PAID",
		"app_no,admission_fees_amount,admission_fees_status,admission_fees_paid_date,tuition_fees_amount,tuition_fees_paid_date\n"+
			"A1,100,1,,200,\nA2,100,0,,200,\n"))
	ie := wantCode(t, err, CodeMissingColumns)
	if ie.Context["columns"] != "tuition_fees_status" {
		t.Fatalf("context = %v", ie.Context)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM FEES_PAID`); n != 0 {
		t.Fatalf("%d fee rows written", n)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM LOGS_TABLE WHERE remark = ?`, "rejected: MISSING_COLUMNS"); n != 1 {
		t.Fatalf("expected one rejection log row, got %d", n)
	}
}

func TestImportHeaderMatchIsCaseSensitive(t *testing.T) {
	d, _ := newImporter(t)
	_, err := d.ImportData(context.Background(), upload("MASTER_TABLE", "APP_NO,Name\nA1,Ada\n"))
	wantCode(t, err, CodeMissingColumns)
}

func TestImportInvalidValueRollsBackBatch(t *testing.T) {
	d, s := newImporter(t)
	_, err := d.ImportData(context.Background(), upload("ITERATION_OFFER",
		"app_no,itr_no,offer,scholarship\nA1,1,CS,\nA2,one,EE,\n"))
	ie := wantCode(t, err, CodeInvalidValue)
	if ie.Context["line"] != "3" || ie.Context["column"] != "itr_no" {
		t.Fatalf("context = %v", ie.Context)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM ITERATION_OFFER`); n != 0 {
		t.Fatalf("%d offer rows written", n)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM ITERATION_DATE`); n != 0 {
		t.Fatalf("iteration date written for rejected batch")
	}
}

func TestImportBlankKeyRejected(t *testing.T) {
	d, _ := newImporter(t)
	_, err := d.ImportData(context.Background(), upload("MASTER_TABLE", "app_no,name\n,Ada\n"))
	wantCode(t, err, CodeMissingKey)
}

func TestImportEmptyAndMalformedFiles(t *testing.T) {
	d, _ := newImporter(t)
	ctx := context.Background()
	_, err := d.ImportData(ctx, upload("MASTER_TABLE", ""))
	wantCode(t, err, CodeEmptyFile)
	_, err = d.ImportData(ctx, upload("MASTER_TABLE", "app_no,name\n"))
	wantCode(t, err, CodeEmptyFile)
	_, err = d.ImportData(ctx, upload("MASTER_TABLE", "app_no,name\nA1,Ada,extra\n"))
	wantCode(t, err, CodeMalformedFile)
}

func TestImportUnknownTable(t *testing.T) {
	d, s := newImporter(t)
	_, err := d.ImportData(context.Background(), upload("USERS", "email\nx@example.com\n"))
	wantCode(t, err, CodeUnknownTable)
	if n := count(t, s, `SELECT COUNT(*) FROM LOGS_TABLE WHERE category = 'USERS'`); n != 1 {
		t.Fatalf("expected a log row for the rejected upload, got %d", n)
	}
}

func TestImportSamePrimaryKeyTwiceKeepsSecond(t *testing.T) {
	d, s := newImporter(t)
	res, err := d.ImportData(context.Background(), upload("FEES_PAID",
		feesHeader+"A1,100,1,,,0,\nA1,250,1,,,1,\n"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows != 2 {
		t.Fatalf("rows = %d", res.Rows)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM FEES_PAID`); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
	fee, _, err := store.FeePayment(context.Background(), s, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if fee.AdmissionFeesAmount.Int64 != 250 || !fee.TuitionPaid() {
		t.Fatalf("second payload not kept: %+v", fee)
	}
	if fee.AdmissionFeesUploadedBy.String != "admin@example.com" || !fee.TuitionFeesUploadDateTime.Valid {
		t.Fatalf("stamped columns not filled: %+v", fee)
	}
}

func TestImportNormalizesBlankCells(t *testing.T) {
	d, s := newImporter(t)
	_, err := d.ImportData(context.Background(), upload("ITERATION_OFFER",
		"app_no,itr_no,offer,scholarship\nA1,1,CS,NaN\nA2,1,EE, \n"))
	if err != nil {
		t.Fatal(err)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM ITERATION_OFFER WHERE scholarship IS NULL`); n != 2 {
		t.Fatalf("expected NULL scholarships, got %d", n)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM ITERATION_OFFER WHERE scholarship = 'NaN' OR status IS NOT NULL`); n != 0 {
		t.Fatalf("blank marker stored")
	}
}

func TestImportApplicantIsImmutable(t *testing.T) {
	d, s := newImporter(t)
	ctx := context.Background()
	if _, err := d.ImportData(ctx, upload("MASTER_TABLE", "app_no,name\nA1,Ada\n")); err != nil {
		t.Fatal(err)
	}
	if _, err := d.ImportData(ctx, upload("MASTER_TABLE", "app_no,name\nA1,Grace\nA2,Alan\n")); err != nil {
		t.Fatal(err)
	}
	var name string
	if err := s.QueryRowContext(ctx, `SELECT name FROM MASTER_TABLE WHERE app_no = ?`, "A1").Scan(&name); err != nil {
		t.Fatal(err)
	}
	if name != "Ada" {
		t.Fatalf("applicant overwritten: %s", name)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM MASTER_TABLE`); n != 2 {
		t.Fatalf("expected 2 applicants, got %d", n)
	}
}

func TestOfferUploadRecordsIterationAndDerivesAllFees(t *testing.T) {
	d, s := newImporter(t)
	ctx := context.Background()
	testutil.SeedIteration(t, s, 1, clock.Add(-24*time.Hour))
	testutil.SeedOffer(t, s, "A1", 1, "EE", models.StatusAccept)
	testutil.SeedFees(t, s, "A1", true, true)
	testutil.SeedFees(t, s, "A2", true, false)
	testutil.SeedFees(t, s, "A3", false, false)

	res, err := d.ImportData(ctx, upload("ITERATION_OFFER",
		"app_no,itr_no,offer,scholarship,status\nA1,2,CS,,accept\nA2,2,EE,,\n"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Iteration != 2 || res.Derivation == nil || res.Derivation.Updated != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Derivation.Skipped) != 1 || res.Derivation.Skipped[0] != "A3" {
		t.Fatalf("A3 has no offer at iteration 2 and must be reported: %+v", res.Derivation)
	}
	it, ok, err := store.LatestIteration(ctx, s)
	if err != nil || !ok || it.Iteration != 2 || !it.Date.Equal(clock) {
		t.Fatalf("latest iteration = %+v ok=%v err=%v", it, ok, err)
	}
	if got := statusOf(t, s, "A1", 2); got != models.StatusAcceptUpgraded {
		t.Fatalf("A1 = %q", got)
	}
	if got := statusOf(t, s, "A2", 2); got != models.StatusWithdraw {
		t.Fatalf("A2 = %q", got)
	}
	if got := statusOf(t, s, "A1", 1); got != models.StatusAccept {
		t.Fatalf("previous iteration changed: %q", got)
	}
}

func TestOfferUploadMixedIterationsWarns(t *testing.T) {
	d, s := newImporter(t)
	res, err := d.ImportData(context.Background(), upload("ITERATION_OFFER",
		"app_no,itr_no,offer,scholarship\nA1,3,CS,\nA2,4,WL,\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], "mixes iterations") {
		t.Fatalf("warnings = %v", res.Warnings)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM ITERATION_DATE WHERE iteration = 3`); n != 1 {
		t.Fatal("first row's iteration not recorded")
	}
	if n := count(t, s, `SELECT COUNT(*) FROM ITERATION_DATE WHERE iteration = 4`); n != 0 {
		t.Fatal("only the first row's iteration is recorded")
	}
}

func TestFeeUploadDerivesBatchAtLatestIteration(t *testing.T) {
	d, s := newImporter(t)
	ctx := context.Background()
	// iteration 3 was uploaded last even though 5 is higher
	testutil.SeedIteration(t, s, 5, clock.Add(-48*time.Hour))
	testutil.SeedIteration(t, s, 3, clock.Add(-time.Hour))
	for _, appNo := range []string{"A1", "A2", "A3"} {
		testutil.SeedOffer(t, s, appNo, 5, "CS", "")
	}
	testutil.SeedOffer(t, s, "A1", 3, "CS", "")
	testutil.SeedOffer(t, s, "A2", 3, "WL", "")
	testutil.SeedOffer(t, s, "A3", 3, "CS", "")
	testutil.SeedOffer(t, s, "B1", 3, "CS", "")
	testutil.SeedFees(t, s, "B1", true, true)

	res, err := d.ImportData(ctx, upload("FEES_PAID",
		feesCSV("A1,1,1", "A2,1,0", "A3,0,0", "A4,1,1")))
	if err != nil {
		t.Fatal(err)
	}
	if res.Iteration != 3 {
		t.Fatalf("iteration = %d, want 3", res.Iteration)
	}
	for appNo, want := range map[string]string{
		"A1": models.StatusAccept,
		"A2": models.StatusUpgrade,
		"A3": models.StatusWithdraw,
	} {
		if got := statusOf(t, s, appNo, 3); got != want {
			t.Errorf("%s = %q, want %q", appNo, got, want)
		}
		if got := statusOf(t, s, appNo, 5); got != "" {
			t.Errorf("%s iteration 5 changed to %q", appNo, got)
		}
	}
	if got := statusOf(t, s, "B1", 3); got != "" {
		t.Errorf("B1 is not in the batch but was derived: %q", got)
	}
	if len(res.Derivation.Skipped) != 1 || res.Derivation.Skipped[0] != "A4" {
		t.Fatalf("skipped = %v", res.Derivation.Skipped)
	}
}

func TestFeeUploadWithoutIterationSkipsDerivation(t *testing.T) {
	d, s := newImporter(t)
	res, err := d.ImportData(context.Background(), upload("FEES_PAID", feesCSV("A1,1,1")))
	if err != nil {
		t.Fatal(err)
	}
	if res.Derivation != nil || len(res.Warnings) != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM LOGS_TABLE WHERE remark = 'success' AND category = 'FEES_PAID'`); n != 1 {
		t.Fatalf("success log rows = %d", n)
	}
}

func TestImportArchivesUploadAndMetrics(t *testing.T) {
	s := testutil.NewStore(t)
	fs, err := archive.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	counter := batchCounter{}
	d := NewDataImporter(s, ImportConfig{Archive: fs, Metrics: counter, Now: func() time.Time { return clock }})
	ctx := context.Background()

	res, err := d.ImportData(ctx, upload("MASTER_TABLE", "app_no,name\nA1,Ada\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.ArchiveKey, "uploads/master_table/2025/07/") {
		t.Fatalf("archive key = %q", res.ArchiveKey)
	}
	var key string
	if err := s.QueryRowContext(ctx, `SELECT archive_key FROM LOGS_TABLE`).Scan(&key); err != nil {
		t.Fatal(err)
	}
	if key != res.ArchiveKey {
		t.Fatalf("log key %q, result key %q", key, res.ArchiveKey)
	}
	rc, err := fs.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	rc.Close()

	_, _ = d.ImportData(ctx, upload("MASTER_TABLE", "name\nAda\n"))
	if counter["MASTER_TABLE/success"] != 1 || counter["MASTER_TABLE/rejected"] != 1 {
		t.Fatalf("counter = %v", counter)
	}
}

func TestValidateDoesNotWrite(t *testing.T) {
	d, s := newImporter(t)
	rep, err := d.Validate("FEES_PAID", strings.NewReader(
		strings.TrimSuffix(feesHeader, "\n")+",remarks\nA1,,1,,,maybe,,late\n,,0,,,0,,\nA3,,1,,,1,,\n"))
	if err != nil {
		t.Fatal(err)
	}
	if rep.Valid || rep.Rows != 3 || len(rep.Problems) != 2 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Problems[0].Code != CodeInvalidValue || rep.Problems[1].Code != CodeMissingKey {
		t.Fatalf("problems = %+v", rep.Problems)
	}
	if len(rep.Ignored) != 1 || rep.Ignored[0] != "remarks" {
		t.Fatalf("ignored = %v", rep.Ignored)
	}
	if n := count(t, s, `SELECT COUNT(*) FROM LOGS_TABLE`); n != 0 {
		t.Fatal("validate must not write")
	}

	_, err = d.Validate("FEES_PAID", strings.NewReader("app_no\nA1\n"))
	wantCode(t, err, CodeMissingColumns)
}

func TestPartialUploadRejectedAndStoredValuesKept(t *testing.T) {
	d, s := newImporter(t)
	ctx := context.Background()
	if _, err := d.ImportData(ctx, upload("FEES_PAID", feesHeader+"A1,5000,1,2025-06-01,90000,1,2025-06-02\n")); err != nil {
		t.Fatal(err)
	}

	_, err := d.ImportData(ctx, upload("FEES_PAID", "app_no,admission_fees_status,tuition_fees_status\nA1,1,1\n"))
	ie := wantCode(t, err, CodeMissingColumns)
	if !strings.Contains(ie.Context["columns"], "admission_fees_amount") {
		t.Fatalf("context = %v", ie.Context)
	}
	fee, _, err := store.FeePayment(ctx, s, "A1")
	if err != nil {
		t.Fatal(err)
	}
	if fee.AdmissionFeesAmount.Int64 != 5000 || fee.TuitionFeesAmount.Int64 != 90000 || !fee.TuitionFeesPaidDate.Valid {
		t.Fatalf("stored amounts changed: %+v", fee)
	}

	_, err = d.ImportData(ctx, upload("ITERATION_OFFER", "app_no,itr_no,offer\nA1,1,CS\n"))
	ie = wantCode(t, err, CodeMissingColumns)
	if ie.Context["columns"] != "scholarship" {
		t.Fatalf("context = %v", ie.Context)
	}
}

func TestImportBlankRequiredValueRejected(t *testing.T) {
	cases := []struct {
		table, body, column string
	}{
		{"MASTER_TABLE", "app_no,name\nA1,\n", "name"},
		{"ITERATION_OFFER", "app_no,itr_no,offer,scholarship\nA1,1,,\n", "offer"},
		{"ITERATION_OFFER", "app_no,itr_no,offer,scholarship\nA1,1,NaN,10\n", "offer"},
	}
	for _, tc := range cases {
		d, s := newImporter(t)
		_, err := d.ImportData(context.Background(), upload(tc.table, tc.body))
		ie := wantCode(t, err, CodeMissingValue)
		if ie.Context["line"] != "2" || ie.Context["column"] != tc.column {
			t.Errorf("%s: context = %v", tc.table, ie.Context)
		}
		if n := count(t, s, `SELECT COUNT(*) FROM `+tc.table); n != 0 {
			t.Errorf("%s: %d rows written", tc.table, n)
		}
	}
}

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/nonsonwune/admission_cycle/importer"
	"github.com/nonsonwune/admission_cycle/query"
)

var stdin = bufio.NewReader(os.Stdin)

func (a *app) runMenu() {
	ctx := context.Background()
	for {
		displayMenu()
		switch readString() {
		case "1":
			a.displayStats(ctx)
		case "2":
			a.searchStudents(ctx)
		case "3":
			a.displayFees(ctx)
		case "4":
			a.displayIteration(ctx)
		case "5":
			a.displayIterationSummary(ctx)
		case "6":
			a.handleImport(ctx)
		case "7":
			a.handleValidate()
		case "8":
			a.handleWithdraw(ctx)
		case "9", "":
			color.Green("Goodbye!")
			return
		default:
			color.Red("Invalid choice. Please try again.")
		}
	}
}

func displayMenu() {
	color.Cyan("\n=== Admission Cycle Tracker ===")
	fmt.Println("1. Dashboard Statistics")
	fmt.Println("2. Search Students")
	fmt.Println("3. Fee Details")
	fmt.Println("4. Iteration Details")
	fmt.Println("5. Iteration Summary")
	fmt.Println("6. Import CSV File")
	fmt.Println("7. Validate CSV File")
	fmt.Println("8. Withdraw Student")
	fmt.Println("9. Exit")
	fmt.Print("\nEnter your choice (1-9): ")
}

func (a *app) displayStats(ctx context.Context) {
	st, err := a.query.Stats(ctx)
	if err != nil {
		color.Red("Error loading statistics: %v", err)
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Total Applications", strconv.Itoa(st.TotalApplications)})
	table.Append([]string{"Accepted Students", strconv.Itoa(st.AcceptedStudents)})
	table.Append([]string{"Latest Iteration", strconv.Itoa(st.LatestIterationNumber)})
	table.Append([]string{"Latest Iteration Date", formatValue(st.LatestIterationDate)})
	table.Render()
}

func (a *app) searchStudents(ctx context.Context) {
	fmt.Print("Enter application number or name to search: ")
	term := readString()
	if term == "" {
		color.Yellow("Nothing to search for.")
		return
	}
	res, err := a.query.Students(ctx, term)
	if err != nil {
		color.Red("Error searching students: %v", err)
		return
	}
	renderResult(res, "No student found for "+term)
}

func (a *app) displayFees(ctx context.Context) {
	fmt.Print("Enter application number: ")
	appNo := readString()
	res, err := a.query.Fees(ctx, appNo)
	if err != nil {
		color.Red("Error loading fees: %v", err)
		return
	}
	if res.Empty() {
		color.Yellow("No fees record found for application number: %s", appNo)
		return
	}
	// one wide row reads better transposed
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Field", "Value"})
	for _, col := range res.Columns {
		table.Append([]string{col, formatValue(res.Rows[0][col])})
	}
	table.Render()
}

func (a *app) displayIteration(ctx context.Context) {
	fmt.Print("Enter iteration number: ")
	n, err := strconv.Atoi(readString())
	if err != nil {
		color.Red("Iteration must be a number.")
		return
	}
	res, err := a.query.Iteration(ctx, n)
	if err != nil {
		color.Red("Error loading iteration: %v", err)
		return
	}
	renderResult(res, fmt.Sprintf("No records found for iteration: %d", n))
}

func (a *app) displayIterationSummary(ctx context.Context) {
	sum, err := a.query.IterationSummary(ctx)
	if err != nil {
		color.Red("Error loading iterations: %v", err)
		return
	}
	if sum.Count == 0 {
		color.Yellow("No iterations uploaded yet.")
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Iteration", "Last Upload", "Latest"})
	for _, it := range sum.Iterations {
		latest := ""
		if sum.Latest != nil && sum.Latest.Iteration == it.Iteration {
			latest = "*"
		}
		table.Append([]string{strconv.Itoa(it.Iteration), formatValue(it.Date), latest})
	}
	table.Render()
}

func (a *app) handleImport(ctx context.Context) {
	table := a.readTableName()
	if table == "" {
		return
	}
	fmt.Print("Enter the CSV file path: ")
	path := readString()

	fmt.Printf("\nReady to import %s into %s\n", path, table)
	fmt.Print("Proceed with import? (y/n): ")
	if strings.ToLower(readString()) != "y" {
		fmt.Println("Import cancelled.")
		return
	}
	a.importFile(ctx, table, path)
}

// importFile runs one CSV file through the importer and prints the outcome.
func (a *app) importFile(ctx context.Context, table, path string) bool {
	file, err := os.Open(path)
	if err != nil {
		color.Red("Error opening file: %v", err)
		return false
	}
	defer file.Close()

	res, err := a.importer.ImportData(ctx, importer.Upload{
		Table:       table,
		FileName:    filepath.Base(path),
		ContentType: "text/csv",
		Body:        file,
		UploadedBy:  a.cfg.Operator,
		ClientAddr:  "cli",
	})
	if err != nil {
		printImportError(err)
		return false
	}
	color.Green("Imported %d rows into %s.", res.Rows, res.Table)
	if rep := res.Derivation; rep != nil {
		fmt.Printf("Iteration %d: %d statuses updated, %d skipped\n", rep.Iteration, rep.Updated, len(rep.Skipped))
	}
	for _, w := range res.Warnings {
		color.Yellow("Warning: %s", w)
	}
	return true
}

func (a *app) handleValidate() {
	table := a.readTableName()
	if table == "" {
		return
	}
	fmt.Print("Enter the CSV file path: ")
	path := readString()
	file, err := os.Open(path)
	if err != nil {
		color.Red("Error opening file: %v", err)
		return
	}
	defer file.Close()

	report, err := a.importer.Validate(table, file)
	if err != nil {
		printImportError(err)
		return
	}
	if report.Valid {
		color.Green("%d rows are ready to import into %s.", report.Rows, report.Table)
	}
	if len(report.Ignored) > 0 {
		color.Yellow("Columns that will be ignored: %s", strings.Join(report.Ignored, ", "))
	}
	if len(report.Problems) == 0 {
		return
	}
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"Line", "Column", "Code", "Problem"})
	for _, p := range report.Problems {
		t.Append([]string{strconv.Itoa(p.Line), p.Column, p.Code, p.Message})
	}
	t.Render()
}

func (a *app) handleWithdraw(ctx context.Context) {
	fmt.Print("Enter application number to withdraw: ")
	appNo := readString()
	fmt.Printf("Withdraw %s from the current iteration? (y/n): ", appNo)
	if strings.ToLower(readString()) != "y" {
		fmt.Println("Withdrawal cancelled.")
		return
	}
	res, err := a.importer.WithdrawApplicant(ctx, appNo, a.cfg.Operator, "cli")
	if err != nil {
		printImportError(err)
		return
	}
	color.Green("Student %s withdrawn.", appNo)
	for _, w := range res.Warnings {
		color.Yellow("Warning: %s", w)
	}
}

func (a *app) readTableName() string {
	names := a.importer.Registry().Names()
	fmt.Printf("Tables: %s\n", strings.Join(names, ", "))
	fmt.Print("Enter the target table: ")
	table := strings.ToUpper(readString())
	for _, n := range names {
		if n == table {
			return table
		}
	}
	color.Red("Unknown table %q.", table)
	return ""
}

func printImportError(err error) {
	ie, ok := importer.AsImportError(err)
	if !ok {
		color.Red("Error importing data: %v", err)
		return
	}
	color.Red("Upload rejected [%s]: %s", ie.Code, ie.Message)
	for k, v := range ie.Context {
		fmt.Printf("  %s: %s\n", k, v)
	}
}

func renderResult(res *query.Result, emptyMessage string) {
	if res.Empty() {
		color.Yellow("%s", emptyMessage)
		return
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(res.Columns)
	for _, row := range res.Rows {
		cells := make([]string, len(res.Columns))
		for i, col := range res.Columns {
			cells[i] = formatValue(row[col])
		}
		table.Append(cells)
	}
	table.Render()
}

func readString() string {
	line, _ := stdin.ReadString('\n')
	return strings.TrimSpace(line)
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "N/A"
	case time.Time:
		if x.IsZero() {
			return "N/A"
		}
		return x.Format("2006-01-02 15:04")
	default:
		return fmt.Sprint(x)
	}
}

package importer

import (
	"context"
	"fmt"

	"github.com/nonsonwune/admission_cycle/models"
	"github.com/nonsonwune/admission_cycle/status"
	"github.com/nonsonwune/admission_cycle/store"
)

// offerCascade stamps the iteration of the batch with the upload time and
// re-derives the status of every applicant with a fee record.
func offerCascade(ctx context.Context, c *CascadeContext) error {
	itr, ok := c.Rows[0].Int("itr_no")
	if !ok {
		return fmt.Errorf("offer batch without itr_no")
	}
	for _, row := range c.Rows[1:] {
		if n, _ := row.Int("itr_no"); n != itr {
			c.Result.warn("batch mixes iterations %d and %d; iteration %d recorded", itr, n, itr)
			break
		}
	}
	if err := store.UpsertIterationDate(ctx, c.Tx, int(itr), c.Now); err != nil {
		return err
	}

	appNos, err := store.FeePaymentAppNos(ctx, c.Tx)
	if err != nil {
		return err
	}
	return derive(ctx, c, appNos)
}

// feesCascade re-derives the applicants of the batch.
func feesCascade(ctx context.Context, c *CascadeContext) error {
	appNos := make([]string, 0, len(c.Rows))
	seen := make(map[string]bool, len(c.Rows))
	for _, row := range c.Rows {
		appNo := row.Text("app_no")
		if !seen[appNo] {
			seen[appNo] = true
			appNos = append(appNos, appNo)
		}
	}
	return derive(ctx, c, appNos)
}

func derive(ctx context.Context, c *CascadeContext, appNos []string) error {
	latest, ok, err := c.Engine.LatestIteration(ctx, c.Tx)
	if err != nil {
		return err
	}
	if !ok {
		c.Result.warn("no iteration on file, statuses not derived")
		return nil
	}
	c.Result.Iteration = latest.Iteration
	rep, err := c.Engine.ApplyAll(ctx, c.Tx, appNos, latest.Iteration)
	if err != nil {
		return err
	}
	c.Result.Derivation = &rep
	if len(rep.Skipped) > 0 {
		c.Result.warn("no offer in iteration %d for %v, status not updated", latest.Iteration, rep.Skipped)
	}
	return nil
}

// withdrawCascade marks the offer at the latest iteration of every
// withdrawn applicant. Unknown applicants reject the batch.
func withdrawCascade(ctx context.Context, c *CascadeContext) error {
	for _, row := range c.Rows {
		appNo := row.Text("app_no")
		exists, err := store.ApplicantExists(ctx, c.Tx, appNo)
		if err != nil {
			return err
		}
		if !exists {
			return newImportError(CodeUnknownApplicant,
				map[string]string{"app_no": appNo, "line": fmt.Sprint(row.Line)},
				"applicant %s does not exist", appNo)
		}
	}

	latest, ok, err := c.Engine.LatestIteration(ctx, c.Tx)
	if err != nil {
		return err
	}
	if !ok {
		c.Result.warn("no iteration on file, offer statuses not updated")
		return nil
	}
	c.Result.Iteration = latest.Iteration
	rep := &status.Report{Iteration: latest.Iteration, ByStatus: map[string]int{}}
	for _, row := range c.Rows {
		appNo := row.Text("app_no")
		found, err := store.SetOfferStatus(ctx, c.Tx, appNo, latest.Iteration, models.StatusWithdraw)
		if err != nil {
			return err
		}
		if !found {
			rep.Skipped = append(rep.Skipped, appNo)
			continue
		}
		rep.Updated++
		rep.ByStatus[models.StatusWithdraw]++
	}
	c.Result.Derivation = rep
	if len(rep.Skipped) > 0 {
		c.Result.warn("no offer in iteration %d for %v, status not updated", latest.Iteration, rep.Skipped)
	}
	return nil
}

// WithdrawApplicant records a single withdrawal and marks the applicant's
// latest offer as withdrawn, in one transaction.
func (d *DataImporter) WithdrawApplicant(ctx context.Context, appNo, uploadedBy, clientAddr string) (*ImportResult, error) {
	row := map[string]string{"app_no": appNo}
	return d.ImportRecords(ctx, "WITHDRAWS", []map[string]string{row}, uploadedBy, clientAddr, "withdraw "+appNo)
}

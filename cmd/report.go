package cmd

import (
	"time"

	"s3transfer/internal/models"
	"s3transfer/internal/transfer"
	"s3transfer/pkg/utils"
)

// buildReport flattens a finished job into its printable form. Sizes of
// successful items with a known length make up the total.
func buildReport(job *transfer.Job, started time.Time) models.BatchReport {
	report := models.BatchReport{
		Operation:     string(job.Kind),
		BucketName:    job.Bucket,
		Items:         make([]models.ItemReport, 0, job.Len()),
		TotalItems:    job.Len(),
		Succeeded:     job.Count(transfer.Success),
		Skipped:       job.Count(transfer.Skipped),
		Failed:        len(job.Failed()),
		AnyFailed:     job.AnyFailed(),
		OperationTime: utils.FormatTime(started),
		Duration:      time.Since(started).Round(time.Millisecond).String(),
	}

	for _, res := range job.Results {
		item := models.ItemReport{
			Source:      res.Item.Source,
			Object:      res.Item.Object.String(),
			Destination: res.Item.Destination,
			Size:        res.Item.Size,
			SizeHuman:   utils.FormatBytes(res.Item.Size),
			Status:      res.Status.String(),
			Output:      res.Output(),
			Generation:  res.Generation,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		if res.Status == transfer.Success && res.Item.Size > 0 {
			report.TotalSizeBytes += res.Item.Size
		}
		report.Items = append(report.Items, item)
	}
	report.TotalSizeHuman = utils.FormatBytes(report.TotalSizeBytes)
	return report
}

// printReport writes the report as JSON and turns failed items into
// ErrFailed.
func printReport(job *transfer.Job, started time.Time, command string) error {
	if err := utils.PrintJSON(buildReport(job, started)); err != nil {
		utils.PrintError(err, command)
		return ErrFailed
	}
	if job.AnyFailed() {
		return ErrFailed
	}
	return nil
}

// fail prints err in the JSON error format and returns ErrFailed.
func fail(err error, command string) error {
	utils.PrintError(err, command)
	return ErrFailed
}

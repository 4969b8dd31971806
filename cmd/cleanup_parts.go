package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"s3transfer/internal/s3client"
	"s3transfer/internal/transfer"
	"s3transfer/pkg/utils"
)

var cleanupPartsCmd = &cobra.Command{
	Use:   "cleanup-parts",
	Short: "Delete leftover composite upload parts",
	Long: `Delete part objects left behind by interrupted composite uploads.

Composite uploads write each file as temporary part objects named
"<name>.part-NNNNN" and delete them once the final object is composed.
Parts survive only when the process dies mid-upload. This command lists
the bucket (or --prefix, which defaults to TM_PART_PREFIX), keeps only part
objects older than --days and deletes them in batches.

WARNING: Do not run this with --days 0 while uploads are in progress.`,
	Example: `  # Delete parts older than one day
  s3transfer cleanup-parts

  # Show what would be deleted under a part prefix
  s3transfer cleanup-parts --prefix tmp-parts --dry-run

  # Delete parts older than a week without prompting
  s3transfer cleanup-parts --days 7 --confirm`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCleanupParts(cmd)
	},
}

func runCleanupParts(cmd *cobra.Command) error {
	days, _ := cmd.Flags().GetInt("days")
	confirm, _ := cmd.Flags().GetBool("confirm")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	prefix, _ := cmd.Flags().GetString("prefix")
	if !cmd.Flags().Changed("prefix") {
		prefix = cfg.PartPrefix
	}

	if days < 0 {
		return fail(fmt.Errorf("days must not be negative"), "cleanup-parts")
	}

	bucketName := getBucketName(cmd)
	if !confirm && !dryRun {
		cutoffDate := time.Now().AddDate(0, 0, -days)
		fmt.Printf("WARNING: This will permanently delete part objects older than %d days (%s) from bucket '%s'",
			days, cutoffDate.Format("2006-01-02"), bucketName)
		if prefix != "" {
			fmt.Printf(" under prefix '%s'", prefix)
		}
		fmt.Println()
		if !confirmed("Are you sure?") {
			fmt.Println("Operation cancelled.")
			return nil
		}
	}

	client, err := s3client.New(cfg)
	if err != nil {
		return fail(err, "cleanup-parts")
	}

	timeout, _ := cmd.Flags().GetInt("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	logger.Debug("cleaning up parts", "bucket", bucketName, "prefix", prefix, "days", days, "dry_run", dryRun)

	result, err := client.DeleteOldObjects(ctx, bucketName, prefix, days, transfer.IsPartName, dryRun)
	if err != nil {
		return fail(err, "cleanup-parts")
	}
	if err := utils.PrintJSON(result); err != nil {
		return fail(err, "cleanup-parts")
	}
	if len(result.FailedFiles) > 0 {
		return ErrFailed
	}
	return nil
}

func init() {
	cleanupPartsCmd.Flags().IntP("days", "d", 1, "Delete parts older than this many days")
	cleanupPartsCmd.Flags().StringP("prefix", "p", "", "Prefix to search in (default: TM_PART_PREFIX)")
	cleanupPartsCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	cleanupPartsCmd.Flags().Bool("dry-run", false, "Show what would be deleted without actually deleting")
	cleanupPartsCmd.Flags().Int("timeout", 1800, "Timeout in seconds for the operation (default: 30 minutes)")

	cleanupPartsCmd.SetUsageTemplate(usageTemplate)
}

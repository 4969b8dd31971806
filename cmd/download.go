package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"s3transfer/internal/storage"
	"s3transfer/internal/transfer"
)

var downloadCmd = &cobra.Command{
	Use:   "download [objects...]",
	Short: "Download many objects from S3 in parallel",
	Long: `Download objects from an S3 bucket in parallel.

Objects are given by name as arguments, or selected with --prefix, which
downloads every object under that prefix. Each object is written to the
destination directory under its own name, minus --strip-prefix.

With TM_ALLOW_SPLIT_DOWNLOAD enabled, objects larger than the split
threshold are fetched as concurrent byte ranges into one file.`,
	Example: `  # Download two objects into the current directory
  s3transfer download reports/q1.pdf reports/q2.pdf

  # Download a whole prefix into /tmp/restore
  s3transfer download --prefix backups/2024/ --destination /tmp/restore

  # Drop the prefix from local paths
  s3transfer download --prefix backups/2024/ --strip-prefix backups/

  # Keep local files that already exist
  s3transfer download --prefix data/ --skip-if-exists`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDownload(cmd, args)
	},
}

func runDownload(cmd *cobra.Command, args []string) error {
	prefix, _ := cmd.Flags().GetString("prefix")
	destination, _ := cmd.Flags().GetString("destination")
	stripPrefix, _ := cmd.Flags().GetString("strip-prefix")
	skipIfExists, _ := cmd.Flags().GetBool("skip-if-exists")
	confirm, _ := cmd.Flags().GetBool("confirm")
	timeout, _ := cmd.Flags().GetInt("timeout")

	if len(args) == 0 && prefix == "" {
		return fail(errors.New("either object names or --prefix is required"), "download")
	}
	if destination == "" {
		destination = "."
	}

	downloadCfg := transfer.DownloadConfig{
		Bucket:       getBucketName(cmd),
		StripPrefix:  stripPrefix,
		DownloadDir:  destination,
		SkipIfExists: skipIfExists,
	}
	if err := downloadCfg.Validate(); err != nil {
		return fail(err, "download")
	}

	manager, client, err := newManager()
	if err != nil {
		return fail(err, "download")
	}
	defer manager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	targets := objectTargets(args)
	if prefix != "" {
		listed, err := client.ListObjects(ctx, downloadCfg.Bucket, prefix)
		if err != nil {
			return fail(err, "download")
		}
		targets = append(targets, listed...)
	}
	if len(targets) == 0 {
		return fail(fmt.Errorf("no objects found under %q", prefix), "download")
	}

	if !confirm {
		fmt.Printf("Download operation summary:\n")
		fmt.Printf("Bucket: %s\n", downloadCfg.Bucket)
		fmt.Printf("Objects: %d\n", len(targets))
		fmt.Printf("Destination: %s\n", destination)
		if !confirmed("Continue with download?") {
			fmt.Println("Download cancelled")
			return nil
		}
	}

	logger.Debug("downloading objects", "bucket", downloadCfg.Bucket, "objects", len(targets))

	started := time.Now()
	job, err := manager.DownloadMany(ctx, targets, downloadCfg)
	if err != nil {
		return fail(err, "download")
	}
	return printReport(job, started, "download")
}

// objectTargets turns object names into download targets of unknown size.
// The bucket is filled in from the download config.
func objectTargets(names []string) []storage.ObjectInfo {
	targets := make([]storage.ObjectInfo, 0, len(names))
	for _, name := range names {
		targets = append(targets, storage.ObjectInfo{
			ObjectID: storage.ObjectID{Name: name},
			Size:     -1,
		})
	}
	return targets
}

func init() {
	downloadCmd.Flags().String("prefix", "", "Download every object under this prefix")
	downloadCmd.Flags().StringP("destination", "d", "", "Local directory to download into (default: current directory)")
	downloadCmd.Flags().String("strip-prefix", "", "Remove this prefix from object names when building local paths")
	downloadCmd.Flags().Bool("skip-if-exists", false, "Leave existing local files untouched and report them as skipped")
	downloadCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	downloadCmd.Flags().Int("timeout", 3600, "Timeout in seconds for the operation (default: 1 hour)")

	downloadCmd.SetUsageTemplate(usageTemplate)
}

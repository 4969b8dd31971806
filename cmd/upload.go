package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"s3transfer/internal/storage"
	"s3transfer/internal/transfer"
	"s3transfer/pkg/utils"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload many files to S3 in parallel",
	Long: `Upload files to an S3 bucket in parallel.

Each file becomes one object named after its path, with leading "/" and ".."
segments removed. The --prefix flag is prepended to every object name.

Directories are rejected unless --recursive is given, in which case every
regular file below them is uploaded.

With TM_ALLOW_COMPOSITE_UPLOAD enabled, files larger than four buffers are
uploaded as parts and composed server-side into the final object.`,
	Example: `  # Upload two files to the bucket root
  s3transfer upload report.pdf data.csv --confirm

  # Upload a directory tree under a prefix
  s3transfer upload ./logs --recursive --prefix "backups/2024"

  # Keep objects that already exist
  s3transfer upload data/*.parquet --skip-if-exists

  # Upload to a different bucket with debug logging
  s3transfer upload big.iso --bucket my-other-bucket --verbose`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUpload(cmd, args)
	},
}

func runUpload(cmd *cobra.Command, args []string) error {
	prefix, _ := cmd.Flags().GetString("prefix")
	skipIfExists, _ := cmd.Flags().GetBool("skip-if-exists")
	recursive, _ := cmd.Flags().GetBool("recursive")
	confirm, _ := cmd.Flags().GetBool("confirm")
	timeout, _ := cmd.Flags().GetInt("timeout")
	cacheControl, _ := cmd.Flags().GetString("cache-control")
	storageClass, _ := cmd.Flags().GetString("storage-class")

	paths := args
	if recursive {
		if err := utils.ValidatePaths(args); err != nil {
			return fail(err, "upload")
		}
		expanded, err := utils.ExpandPaths(args)
		if err != nil {
			return fail(err, "upload")
		}
		paths = expanded
	}

	uploadCfg := transfer.UploadConfig{
		Bucket:       getBucketName(cmd),
		Prefix:       prefix,
		SkipIfExists: skipIfExists,
		WriteOptions: storage.WriteOptions{
			CacheControl: cacheControl,
			StorageClass: storageClass,
		},
	}
	if err := uploadCfg.Validate(); err != nil {
		return fail(err, "upload")
	}

	if !confirm {
		fmt.Printf("Upload operation summary:\n")
		fmt.Printf("Bucket: %s\n", uploadCfg.Bucket)
		if prefix != "" {
			fmt.Printf("Prefix: %s\n", prefix)
		}
		fmt.Printf("Files: %d\n", len(paths))
		if !confirmed("Continue with upload?") {
			fmt.Println("Upload cancelled")
			return nil
		}
	}

	manager, _, err := newManager()
	if err != nil {
		return fail(err, "upload")
	}
	defer manager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	logger.Debug("uploading files", "bucket", uploadCfg.Bucket, "files", len(paths))

	started := time.Now()
	job, err := manager.UploadMany(ctx, paths, uploadCfg)
	if err != nil {
		return fail(err, "upload")
	}
	return printReport(job, started, "upload")
}

func init() {
	uploadCmd.Flags().StringP("prefix", "p", "", "Object name prefix for every uploaded file")
	uploadCmd.Flags().Bool("skip-if-exists", false, "Leave existing objects untouched and report them as skipped")
	uploadCmd.Flags().BoolP("recursive", "r", false, "Upload every regular file below the given directories")
	uploadCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	uploadCmd.Flags().Int("timeout", 3600, "Timeout in seconds for the operation (default: 1 hour)")
	uploadCmd.Flags().String("cache-control", "", "Cache-Control header for uploaded objects")
	uploadCmd.Flags().String("storage-class", "", "Storage class for uploaded objects, e.g. STANDARD_IA")

	uploadCmd.SetUsageTemplate(usageTemplate)
}

package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"s3transfer/config"
	"s3transfer/internal/s3client"
	"s3transfer/internal/transfer"
)

// ErrFailed is returned by Execute after a command has already printed its
// error or a report with failed items.
var ErrFailed = errors.New("command failed")

var (
	cfg      *config.Config
	logLevel = new(slog.LevelVar)
	logger   = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
)

var rootCmd = &cobra.Command{
	Use:   "s3transfer",
	Short: "Parallel bulk transfers between local files and S3",
	Long: `s3transfer moves many files between the local filesystem and an S3 bucket
in parallel. Large downloads can be fetched as concurrent byte ranges and
large uploads can be written as parts that are composed server-side.
Configuration is loaded from .env file or environment variables`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if isVerbose(cmd) {
			logLevel.Set(slog.LevelDebug)
		}
	},
}

func Execute(config *config.Config) error {
	cfg = config
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(cleanupPartsCmd)

	rootCmd.PersistentFlags().StringP("bucket", "b", "", "Override bucket name from config")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
}

func getBucketName(cmd *cobra.Command) string {
	bucket, _ := cmd.Flags().GetString("bucket")
	if bucket != "" {
		return bucket
	}
	return cfg.BucketName
}

func isVerbose(cmd *cobra.Command) bool {
	verbose, _ := cmd.Flags().GetBool("verbose")
	return verbose
}

// newManager builds the S3 client and a transfer manager on top of it.
// The caller owns the manager and must close it.
func newManager() (*transfer.Manager, *s3client.Client, error) {
	client, err := s3client.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	engine, err := cfg.Engine()
	if err != nil {
		return nil, nil, err
	}
	manager, err := transfer.New(client, engine, transfer.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return manager, client, nil
}

// confirmed prints prompt and reads a y/yes answer from stdin.
func confirmed(prompt string) bool {
	fmt.Print(prompt + " (y/N): ")
	var response string
	fmt.Scanln(&response)
	switch response {
	case "y", "yes", "Y", "YES":
		return true
	}
	return false
}

const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

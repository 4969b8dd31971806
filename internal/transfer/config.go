package transfer

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"s3transfer/internal/storage"
)

const (
	// DefaultPerWorkerBufferSize is both the split-download chunk size and
	// the composite-upload part size.
	DefaultPerWorkerBufferSize int64 = 16 * 1024 * 1024

	// DefaultSplitThreshold is the object size above which a download is
	// split into ranged reads.
	DefaultSplitThreshold int64 = 128 * 1024 * 1024

	// DefaultPartTimeout bounds the wait for a composite part's write session.
	DefaultPartTimeout = 10 * time.Second
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EngineConfig is the Manager-wide configuration. It is fixed for the
// lifetime of a Manager.
type EngineConfig struct {
	MaxWorkers           int   `validate:"min=1"`
	PerWorkerBufferSize  int64 `validate:"min=1"`
	SplitThreshold       int64 `validate:"min=0"`
	AllowSplitDownload   bool
	AllowCompositeUpload bool
	PartNaming           PartNaming
}

// DefaultEngineConfig returns two workers per CPU, 16 MiB buffers and both
// split strategies disabled.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxWorkers:          2 * runtime.NumCPU(),
		PerWorkerBufferSize: DefaultPerWorkerBufferSize,
		SplitThreshold:      DefaultSplitThreshold,
	}
}

func (c EngineConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: engine: %w", ErrInvalidConfig, err)
	}
	if err := c.PartNaming.validate(); err != nil {
		return fmt.Errorf("%w: engine: %w", ErrInvalidConfig, err)
	}
	return nil
}

// UploadConfig applies to every item of one UploadMany call.
type UploadConfig struct {
	Bucket string `validate:"required,excludesall=/"`
	// Prefix is prepended to every derived object name.
	Prefix       string
	SkipIfExists bool
	// WriteOptions are forwarded to every write. SkipIfExists adds the
	// does-not-exist precondition on top of them.
	WriteOptions storage.WriteOptions
	// PartTimeout bounds the wait for each composite part. Zero means
	// DefaultPartTimeout.
	PartTimeout time.Duration `validate:"min=0"`
}

func (c UploadConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: upload: %w", ErrInvalidConfig, err)
	}
	if err := validatePrefix(c.Prefix); err != nil {
		return fmt.Errorf("%w: upload: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c UploadConfig) writeOptions() storage.WriteOptions {
	opts := c.WriteOptions
	if c.SkipIfExists {
		opts.DoesNotExist = true
	}
	return opts
}

func (c UploadConfig) partTimeout() time.Duration {
	if c.PartTimeout > 0 {
		return c.PartTimeout
	}
	return DefaultPartTimeout
}

// DownloadConfig applies to every item of one DownloadMany call.
type DownloadConfig struct {
	Bucket string `validate:"required,excludesall=/"`
	// StripPrefix is removed from object names before building local paths.
	StripPrefix string
	// DownloadDir is the root of every destination path. Empty means the
	// current working directory.
	DownloadDir string
	// SkipIfExists skips items whose destination file already exists.
	SkipIfExists bool
	ReadOptions  storage.ReadOptions
}

func (c DownloadConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: download: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c DownloadConfig) downloadDir() string {
	if c.DownloadDir == "" {
		return "."
	}
	return c.DownloadDir
}

func validatePrefix(prefix string) error {
	if strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("prefix %q must not start with /", prefix)
	}
	for _, segment := range strings.Split(prefix, "/") {
		if segment == ".." {
			return fmt.Errorf("prefix %q must not contain .. segments", prefix)
		}
	}
	return nil
}

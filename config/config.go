package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"s3transfer/internal/transfer"
	"s3transfer/pkg/utils"
)

// minComposePartSize is the smallest part S3 accepts in a server-side
// multipart copy, except for the last part.
const minComposePartSize = 5 * 1024 * 1024

type Config struct {
	ApiURL     string
	AccessKey  string
	SecretKey  string
	BucketName string
	Region     string

	MaxWorkers           int   `validate:"min=1"`
	BufferSize           int64 `validate:"min=1"`
	AllowSplitDownload   bool
	AllowCompositeUpload bool
	PartNaming           string `validate:"omitempty,oneof=none prefix object"`
	PartPrefix           string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found, using environment variables only")
	}

	config := &Config{
		ApiURL:     getEnv("API_URL", ""),
		AccessKey:  getEnv("ACCESS_KEY", ""),
		SecretKey:  getEnv("SECRET_KEY", ""),
		BucketName: getEnv("BUCKET_NAME", ""),
		Region:     getEnv("REGION", ""),
		PartNaming: getEnv("TM_PART_NAMING", "none"),
		PartPrefix: getEnv("TM_PART_PREFIX", ""),
	}

	var err error
	if config.MaxWorkers, err = strconv.Atoi(getEnv("TM_MAX_WORKERS", strconv.Itoa(2*runtime.NumCPU()))); err != nil {
		return nil, fmt.Errorf("invalid TM_MAX_WORKERS: %w", err)
	}
	if config.BufferSize, err = utils.ParseBytes(getEnv("TM_BUFFER_SIZE", "16MiB")); err != nil {
		return nil, fmt.Errorf("invalid TM_BUFFER_SIZE: %w", err)
	}
	if config.AllowSplitDownload, err = getEnvBool("TM_ALLOW_SPLIT_DOWNLOAD", false); err != nil {
		return nil, err
	}
	if config.AllowCompositeUpload, err = getEnvBool("TM_ALLOW_COMPOSITE_UPLOAD", false); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.AllowCompositeUpload && c.BufferSize < minComposePartSize {
		return fmt.Errorf("invalid configuration: TM_BUFFER_SIZE must be at least %s for composite uploads",
			utils.FormatBytes(minComposePartSize))
	}
	if _, err := transfer.ParsePartNaming(c.PartNaming, c.PartPrefix); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Engine converts the transfer settings into a transfer.EngineConfig.
func (c *Config) Engine() (transfer.EngineConfig, error) {
	naming, err := transfer.ParsePartNaming(c.PartNaming, c.PartPrefix)
	if err != nil {
		return transfer.EngineConfig{}, err
	}
	engine := transfer.DefaultEngineConfig()
	engine.MaxWorkers = c.MaxWorkers
	engine.PerWorkerBufferSize = c.BufferSize
	engine.AllowSplitDownload = c.AllowSplitDownload
	engine.AllowCompositeUpload = c.AllowCompositeUpload
	engine.PartNaming = naming
	return engine, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

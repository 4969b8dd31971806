// Package transfer parallelizes bulk uploads and downloads against an
// object store. A Manager owns a bounded worker pool; each batch call
// plans its items, fans their units out over the pool and blocks until
// every item has a Result.
package transfer

import (
	"fmt"
	"log/slog"

	"s3transfer/internal/storage"
)

// Manager runs upload and download batches on its own worker pool. It is
// safe for concurrent use; batches from different goroutines share the pool.
type Manager struct {
	client storage.Client
	cfg    EngineConfig
	qos    QoS
	pool   *pool
	logger *slog.Logger
}

type Option func(*Manager)

// WithLogger sets the logger used for batch and item events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// New validates cfg and starts cfg.MaxWorkers workers.
func New(client storage.Client, cfg EngineConfig, opts ...Option) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: storage client is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		client: client,
		cfg:    cfg,
		qos:    NewQoS(cfg),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.pool = newPool(cfg.MaxWorkers)
	m.logger.Debug("transfer manager started",
		"workers", cfg.MaxWorkers,
		"buffer", cfg.PerWorkerBufferSize,
		"split_download", cfg.AllowSplitDownload,
		"composite_upload", cfg.AllowCompositeUpload)
	return m, nil
}

func (m *Manager) Config() EngineConfig {
	return m.cfg
}

// Close stops the worker pool after running tasks finish. Batches started
// afterwards fail with ErrManagerClosed.
func (m *Manager) Close() error {
	return m.pool.close()
}

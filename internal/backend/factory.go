package backend

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cashbook/internal/amqp"
	"cashbook/internal/attachments"
	"cashbook/internal/extract"
	"cashbook/internal/ledger"
	"cashbook/internal/log"
	"cashbook/internal/storage"
)

// Factory opens backends and logs what it opened.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend opens the store, the attachment store, the extractor and the
// optional AMQP client. On failure everything opened so far is closed again.
func (f *Factory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var closers []io.Closer
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*BackendResult, error) {
		_ = cleanup()
		return nil, err
	}

	b := &Backend{}

	store, err := f.createStore(config)
	if err != nil {
		return fail(err)
	}
	b.Store = store
	closers = append(closers, store)

	files, err := f.createFiles(ctx, config)
	if err != nil {
		return fail(err)
	}
	b.Files = files
	if c, ok := files.(io.Closer); ok {
		closers = append(closers, c)
	}

	b.Extractor, err = f.createExtractor(ctx, config)
	if err != nil {
		return fail(err)
	}

	// AMQP is optional: a broker outage degrades to logging, never to a failed start.
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			b.Events = client
			closers = append(closers, client)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized backend",
		"store", config.Type,
		"attachments", config.AttachmentBackend,
		"extractor", config.Extractor,
		"amqp_enabled", b.Events != nil)

	return &BackendResult{Backend: b, Cleanup: cleanup}, nil
}

func (f *Factory) createStore(config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		s, err := storage.NewSQLite(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.SQLiteDBPath)
		return s, nil
	case PostgresBackend:
		s, err := storage.NewPostgres(config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL store: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL store")
		return s, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) createFiles(ctx context.Context, config Config) (attachments.Store, error) {
	if config.AttachmentBackend == "gcs" {
		s, err := attachments.NewGCSStore(ctx, config.GCSBucket, "attachments/")
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS attachments: %w", err)
		}
		return s, nil
	}
	s, err := attachments.NewLocalStore(config.AttachmentDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local attachments: %w", err)
	}
	return s, nil
}

func (f *Factory) createExtractor(ctx context.Context, config Config) (extract.Extractor, error) {
	if config.Extractor != "gemini" {
		return extract.Unavailable{}, nil
	}
	g, err := extract.NewGemini(ctx, config.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini extractor: %w", err)
	}
	if config.ExtractCacheTTL <= 0 {
		return g, nil
	}
	return extract.NewCached(g, config.ExtractCacheTTL), nil
}

// Service wires a ledger service on top of the backend.
func (b *Backend) Service(recorder ledger.Recorder) *ledger.Service {
	var events ledger.Publisher
	if b.Events != nil {
		events = b.Events
	}
	return ledger.NewService(b.Store, b.Files, b.Extractor, events).WithRecorder(recorder)
}

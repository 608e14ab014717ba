// Package backend opens the infrastructure a ledger runs on: the transaction
// store, the attachment store, the receipt extractor and the event publisher.
package backend

import (
	"fmt"
	"time"

	"cashbook/internal/amqp"
	"cashbook/internal/attachments"
	"cashbook/internal/config"
	"cashbook/internal/extract"
	"cashbook/internal/storage"
)

type Backend struct {
	Store     storage.Store
	Files     attachments.Store
	Extractor extract.Extractor
	// Events is nil when AMQP is not configured or the broker was unreachable at startup.
	Events *amqp.Client
}

// CleanupFunc closes whatever CreateBackend opened, newest first.
type CleanupFunc func() error

type BackendResult struct {
	Backend *Backend
	Cleanup CleanupFunc
}

// StoreKind names a transaction store engine.
type StoreKind string

const (
	SQLiteBackend   StoreKind = "sqlite"
	PostgresBackend StoreKind = "postgres"
	MemoryBackend   StoreKind = "memory"
)

type Config struct {
	Type StoreKind

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	AttachmentBackend string
	AttachmentDir     string
	GCSBucket         string

	Extractor       string
	GeminiModel     string
	ExtractCacheTTL time.Duration
}

// FromAppConfig picks the backend settings out of the application config.
// CreateBackend validates the result.
func FromAppConfig(c *config.Config) Config {
	return Config{
		Type:              StoreKind(c.DataBackend),
		SQLiteDBPath:      c.SQLiteDBPath,
		DatabaseURL:       c.DatabaseURL,
		AMQPURL:           c.AMQPURL,
		AMQPExchange:      c.AMQPExchange,
		AMQPQueue:         c.AMQPQueue,
		AttachmentBackend: c.AttachmentBackend,
		AttachmentDir:     c.AttachmentDir,
		GCSBucket:         c.GCSBucket,
		Extractor:         c.Extractor,
		GeminiModel:       c.GeminiModel,
		ExtractCacheTTL:   c.ExtractCacheTTL,
	}
}

func (c Config) Validate() error {
	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
	default:
		return fmt.Errorf("invalid backend type: %q", c.Type)
	}

	switch c.AttachmentBackend {
	case "", "local":
		if c.AttachmentDir == "" {
			return fmt.Errorf("attachment directory is required for local attachments")
		}
	case "gcs":
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS bucket is required for gcs attachments")
		}
	default:
		return fmt.Errorf("invalid attachment backend: %q", c.AttachmentBackend)
	}

	switch c.Extractor {
	case "", "none", "gemini":
		return nil
	default:
		return fmt.Errorf("invalid extractor: %q", c.Extractor)
	}
}

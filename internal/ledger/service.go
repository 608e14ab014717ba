// Package ledger orchestrates transaction writes across the store, the attachment
// store, the amount extractor and the event publisher.
package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"cashbook/internal/amqp"
	"cashbook/internal/attachments"
	"cashbook/internal/auth"
	"cashbook/internal/core"
	"cashbook/internal/extract"
	"cashbook/internal/importer"
	"cashbook/internal/log"
	"cashbook/internal/storage"
)

// Publisher emits ledger events. A nil Publisher disables events.
type Publisher interface {
	PublishEvent(ctx context.Context, e *amqp.Event) error
}

// Upload is an attachment submitted together with a transaction.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Suggestion is the outcome of an amount extraction. It never blocks an entry:
// when Available is false the caller keeps asking the user for the amount.
type Suggestion struct {
	Amount    core.Money
	Available bool
	Err       error
}

// Recorder counts ledger activity, typically into Prometheus.
type Recorder interface {
	TransactionWritten(operation string)
	ImportFinished(imported, duplicates, rejected int)
	Extraction(available bool)
}

type nopRecorder struct{}

func (nopRecorder) TransactionWritten(string) {}
func (nopRecorder) ImportFinished(int, int, int) {}
func (nopRecorder) Extraction(bool) {}

// Service orchestrates transaction operations.
type Service struct {
	store     storage.Store
	files     attachments.Store
	extractor extract.Extractor
	events    Publisher
	recorder  Recorder
}

func NewService(store storage.Store, files attachments.Store, extractor extract.Extractor, events Publisher) *Service {
	if extractor == nil {
		extractor = extract.Unavailable{}
	}
	return &Service{store: store, files: files, extractor: extractor, events: events, recorder: nopRecorder{}}
}

// WithRecorder sets the activity recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentLedger)
}

func txFields(ctx context.Context, op string, tx core.Transaction) []any {
	return log.NewFields().
		WithOperation(op).
		WithTransaction(tx.ID, string(tx.Kind), tx.Amount.String(), tx.Category, tx.Date.String()).
		WithActor(actor(ctx))
}

func actor(ctx context.Context) string {
	if id, ok := auth.IdentityFrom(ctx); ok {
		return id.Username
	}
	return ""
}

// Create validates tx, stores its attachment and inserts the row. When the insert
// fails the freshly stored attachment is removed again.
func (s *Service) Create(ctx context.Context, tx core.Transaction, upload *Upload) (core.Transaction, error) {
	tx.ID = 0
	tx.AttachmentRef = ""
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if upload != nil {
		if s.files == nil {
			return core.Transaction{}, errors.New("attachments are not configured")
		}
		ref, err := s.files.Save(ctx, upload.Filename, upload.Content)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("save attachment: %w", err)
		}
		tx.AttachmentRef = ref
	}

	id, err := s.store.Insert(ctx, tx)
	if err != nil {
		if tx.AttachmentRef != "" {
			if rmErr := s.files.Remove(ctx, tx.AttachmentRef); rmErr != nil {
				logger(ctx).WarnContext(ctx, "Failed to remove orphaned attachment",
					"ref", tx.AttachmentRef, log.FieldError, rmErr)
			}
		}
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	saved, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload transaction: %w", err)
	}
	logger(ctx).InfoContext(ctx, "Transaction created", txFields(ctx, log.OpCreate, saved)...)
	s.recorder.TransactionWritten(log.OpCreate)
	s.publish(ctx, transactionEvent(ctx, amqp.TransactionCreated, saved))
	return saved, nil
}

// Replace overwrites every field of an existing row. The stored attachment
// reference is kept when tx carries none.
func (s *Service) Replace(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	current, err := s.store.Get(ctx, tx.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.AttachmentRef == "" {
		tx.AttachmentRef = current.AttachmentRef
	}
	if err := s.store.Replace(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("replace transaction: %w", err)
	}
	saved, err := s.store.Get(ctx, tx.ID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("reload transaction: %w", err)
	}
	logger(ctx).InfoContext(ctx, "Transaction replaced", txFields(ctx, log.OpReplace, saved)...)
	s.recorder.TransactionWritten(log.OpReplace)
	s.publish(ctx, transactionEvent(ctx, amqp.TransactionReplaced, saved))
	return saved, nil
}

// Delete removes the row first and its attachment afterwards. A failed
// attachment removal is logged and does not fail the delete.
func (s *Service) Delete(ctx context.Context, id int64) error {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tx.AttachmentRef != "" && s.files != nil {
		if err := s.files.Remove(ctx, tx.AttachmentRef); err != nil {
			logger(ctx).WarnContext(ctx, "Failed to remove attachment",
				log.FieldTransactionID, id, "ref", tx.AttachmentRef, log.FieldError, err)
		}
	}
	logger(ctx).InfoContext(ctx, "Transaction deleted", txFields(ctx, log.OpDelete, tx)...)
	s.recorder.TransactionWritten(log.OpDelete)
	s.publish(ctx, transactionEvent(ctx, amqp.TransactionDeleted, tx))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.Get(ctx, id)
}

// List returns the rows matching f, oldest first.
func (s *Service) List(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	if f.Empty() {
		return []core.Transaction{}, nil
	}
	rows, err := s.store.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	if rows == nil {
		rows = []core.Transaction{}
	}
	return rows, nil
}

// Attachment opens the stored attachment of transaction id.
func (s *Service) Attachment(ctx context.Context, id int64) (io.ReadCloser, string, error) {
	tx, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if tx.AttachmentRef == "" || s.files == nil {
		return nil, "", attachments.ErrNotFound
	}
	rc, err := s.files.Open(ctx, tx.AttachmentRef)
	if err != nil {
		return nil, "", err
	}
	return rc, tx.AttachmentRef, nil
}

// SuggestAmount asks the extractor for the amount printed on an attachment.
// Failures are reported inside the Suggestion, never as an error.
func (s *Service) SuggestAmount(ctx context.Context, data []byte, mimeType string) Suggestion {
	m, err := s.extractor.ExtractAmount(ctx, data, mimeType)
	s.recorder.Extraction(err == nil)
	if err != nil {
		logger(ctx).InfoContext(ctx, "Amount extraction unavailable", "mime", mimeType, log.FieldError, err)
		return Suggestion{Err: err}
	}
	return Suggestion{Amount: m, Available: true}
}

// SuggestFromUpload reads at most limit bytes of an upload and extracts its amount.
func (s *Service) SuggestFromUpload(ctx context.Context, filename string, r io.Reader, limit int64) Suggestion {
	mimeType, ok := attachments.MIMEType(filename)
	if !ok {
		return Suggestion{Err: attachments.ErrUnsupportedExt}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(r, limit)); err != nil {
		return Suggestion{Err: fmt.Errorf("read upload: %w", err)}
	}
	return s.SuggestAmount(ctx, buf.Bytes(), mimeType)
}

// Import runs a batch through the importer and announces the result.
func (s *Service) Import(ctx context.Context, t importer.Table, progress importer.Progress) (importer.Result, error) {
	res, err := importer.New(s.store).Import(ctx, t, progress)
	if err != nil {
		return res, err
	}
	s.recorder.ImportFinished(res.Imported, res.Duplicates, len(res.Rejections))
	e := amqp.NewImportEvent(res.Imported, res.Ignored)
	e.Actor = actor(ctx)
	s.publish(ctx, e)
	return res, nil
}

func transactionEvent(ctx context.Context, t amqp.EventType, tx core.Transaction) *amqp.Event {
	e := amqp.NewEvent(t, tx.ID)
	e.Kind = string(tx.Kind)
	e.Amount = tx.Amount.String()
	e.Actor = actor(ctx)
	return e
}

// publish is best-effort: the ledger write already succeeded.
func (s *Service) publish(ctx context.Context, e *amqp.Event) {
	if s.events == nil {
		logger(ctx).DebugContext(ctx, "AMQP client not available, skipping event", "type", e.Type)
		return
	}
	if err := s.events.PublishEvent(ctx, e); err != nil {
		logger(ctx).ErrorContext(ctx, "Failed to publish event", log.NewFields().
			WithError(err, log.ErrorTypeNetwork).
			WithOperation(string(e.Type))...)
	}
}

// Close closes the store and the publisher when it supports closing.
func (s *Service) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.events.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}

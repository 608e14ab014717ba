package ledger

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashbook/internal/amqp"
	"cashbook/internal/attachments"
	"cashbook/internal/auth"
	"cashbook/internal/core"
	"cashbook/internal/importer"
	"cashbook/internal/storage"
)

type recorder struct {
	mu     sync.Mutex
	events []*amqp.Event
	err    error
}

func (r *recorder) PublishEvent(_ context.Context, e *amqp.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recorder) types() []amqp.EventType {
	var out []amqp.EventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type stubExtractor struct {
	m   core.Money
	err error
}

func (s stubExtractor) ExtractAmount(context.Context, []byte, string) (core.Money, error) {
	return s.m, s.err
}

func newService(t *testing.T) (*Service, *storage.MemoryStore, string, *recorder) {
	t.Helper()
	dir := t.TempDir()
	files, err := attachments.NewLocalStore(dir)
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	events := &recorder{}
	return NewService(store, files, stubExtractor{m: core.Money{Cents: 4590}}, events), store, dir, events
}

func rent() core.Transaction {
	return core.Transaction{
		Date:          core.NewDate(2024, 1, 10),
		Description:   "Aluguel",
		Amount:        core.Money{Cents: 150000},
		Kind:          core.KindExpense,
		Category:      "Moradia",
		PaymentMethod: "pix",
	}
}

func TestCreateWithAttachment(t *testing.T) {
	svc, _, dir, events := newService(t)
	ctx := auth.WithIdentity(context.Background(), auth.Identity{Username: "ana"})

	saved, err := svc.Create(ctx, rent(), &Upload{Filename: "recibo.pdf", Content: strings.NewReader("%PDF-1.4")})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)
	assert.NotEmpty(t, saved.AttachmentRef)
	assert.FileExists(t, filepath.Join(dir, saved.AttachmentRef))

	rc, ref, err := svc.Attachment(ctx, saved.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, saved.AttachmentRef, ref)

	require.Len(t, events.events, 1)
	e := events.events[0]
	assert.Equal(t, amqp.TransactionCreated, e.Type)
	assert.Equal(t, saved.ID, e.TransactionID)
	assert.Equal(t, "1500.00", e.Amount)
	assert.Equal(t, "ana", e.Actor)
}

func TestCreateValidatesBeforeWriting(t *testing.T) {
	svc, store, dir, events := newService(t)
	bad := rent()
	bad.Amount = core.Money{}

	_, err := svc.Create(context.Background(), bad, &Upload{Filename: "r.png", Content: strings.NewReader("x")})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	rows, _ := store.Find(context.Background(), core.All())
	assert.Empty(t, rows)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
	assert.Empty(t, events.events)
}

type failingInsert struct{ *storage.MemoryStore }

func (failingInsert) Insert(context.Context, core.Transaction) (int64, error) {
	return 0, errors.New("disk full")
}

func TestCreateRemovesAttachmentWhenInsertFails(t *testing.T) {
	dir := t.TempDir()
	files, err := attachments.NewLocalStore(dir)
	require.NoError(t, err)
	svc := NewService(failingInsert{storage.NewMemoryStore()}, files, nil, nil)

	_, err = svc.Create(context.Background(), rent(), &Upload{Filename: "r.png", Content: strings.NewReader("x")})
	assert.ErrorContains(t, err, "disk full")
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestReplaceKeepsAttachmentAndCreatedAt(t *testing.T) {
	svc, _, _, events := newService(t)
	ctx := context.Background()
	saved, err := svc.Create(ctx, rent(), &Upload{Filename: "r.png", Content: strings.NewReader("x")})
	require.NoError(t, err)

	changed := rent()
	changed.ID = saved.ID
	changed.Amount = core.Money{Cents: 160000}
	changed.Notes = "reajuste"
	got, err := svc.Replace(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, int64(160000), got.Amount.Cents)
	assert.Equal(t, saved.AttachmentRef, got.AttachmentRef)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))

	changed.ID = 999
	_, err = svc.Replace(ctx, changed)
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, []amqp.EventType{amqp.TransactionCreated, amqp.TransactionReplaced}, events.types())
}

func TestDeleteRemovesRowThenAttachment(t *testing.T) {
	svc, store, dir, events := newService(t)
	ctx := context.Background()
	saved, err := svc.Create(ctx, rent(), &Upload{Filename: "r.jpg", Content: strings.NewReader("x")})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, saved.ID))
	_, err = store.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoFileExists(t, filepath.Join(dir, saved.AttachmentRef))

	assert.ErrorIs(t, svc.Delete(ctx, saved.ID), core.ErrNotFound)
	assert.Equal(t, []amqp.EventType{amqp.TransactionCreated, amqp.TransactionDeleted}, events.types())
}

func TestDeleteToleratesMissingAttachmentFile(t *testing.T) {
	svc, _, dir, _ := newService(t)
	ctx := context.Background()
	saved, err := svc.Create(ctx, rent(), &Upload{Filename: "r.jpg", Content: strings.NewReader("x")})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, saved.AttachmentRef)))

	assert.NoError(t, svc.Delete(ctx, saved.ID))
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, store, _, events := newService(t)
	events.err = errors.New("circuit breaker is open")

	saved, err := svc.Create(context.Background(), rent(), nil)
	require.NoError(t, err)
	_, err = store.Get(context.Background(), saved.ID)
	assert.NoError(t, err)
}

func TestSuggestAmount(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	s := svc.SuggestFromUpload(ctx, "nota.png", strings.NewReader("img"), 1<<20)
	assert.True(t, s.Available)
	assert.Equal(t, int64(4590), s.Amount.Cents)

	s = svc.SuggestFromUpload(ctx, "nota.txt", strings.NewReader("img"), 1<<20)
	assert.False(t, s.Available)
	assert.ErrorIs(t, s.Err, attachments.ErrUnsupportedExt)

	providerErr := errors.New("quota exceeded")
	svc.extractor = stubExtractor{err: providerErr}
	s = svc.SuggestAmount(ctx, []byte("img"), "image/png")
	assert.False(t, s.Available)
	assert.Same(t, providerErr, s.Err, "provider error propagates unmodified")
}

func TestImportPublishesSummary(t *testing.T) {
	svc, _, _, events := newService(t)
	tbl := importer.Table{
		Header: importer.RequiredColumns,
		Rows: [][]string{
			{"2024-01-05", "Salário", "5000", "income", "Salário"},
			{"2024-01-06", "Transferência", "10", "transfer", "Outros"},
		},
	}
	res, err := svc.Import(context.Background(), tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	require.Len(t, events.events, 1)
	assert.Equal(t, amqp.ImportCompleted, events.events[0].Type)
	assert.Equal(t, 1, events.events[0].Ignored)
}

func TestListEmptyIsNotNil(t *testing.T) {
	svc, _, _, _ := newService(t)
	rows, err := svc.List(context.Background(), core.All())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

// Package attachments stores receipt files referenced by transactions.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound       = errors.New("attachment not found")
	ErrInvalidRef     = errors.New("invalid attachment reference")
	ErrUnsupportedExt = errors.New("unsupported attachment type")
)

// AllowedExtensions lists the accepted receipt formats.
var AllowedExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".pdf":  "application/pdf",
}

// Store persists attachment bytes under opaque references.
// Remove of an absent reference is not an error.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Remove(ctx context.Context, ref string) error
}

// MIMEType returns the content type for a filename or reference.
func MIMEType(name string) (string, bool) {
	mt, ok := AllowedExtensions[strings.ToLower(filepath.Ext(name))]
	return mt, ok
}

// newRef builds a collision-free reference keeping the original extension.
func newRef(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := AllowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}
	return uuid.NewString() + ext, nil
}

// validRef rejects references that could escape the storage root.
func validRef(ref string) error {
	if ref == "" || ref != path.Base(ref) || strings.ContainsAny(ref, `/\`) || strings.HasPrefix(ref, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return nil
}

// LocalStore keeps attachments in a directory on disk.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(ctx context.Context, filename string, r io.Reader) (string, error) {
	ref, err := newRef(filename)
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create attachment: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write attachment: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close attachment: %w", err)
	}
	slog.DebugContext(ctx, "Attachment saved", "ref", ref, "original", filename)
	return ref, nil
}

func (s *LocalStore) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	if err := validRef(ref); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, ref))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStore) Remove(_ context.Context, ref string) error {
	if err := validRef(ref); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("remove attachment: %w", err)
}

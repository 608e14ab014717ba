package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})

	logger.Info("Transaction created", NewFields().
		WithTransaction(7, "expense", "45.90", "Mercado", "2024-01-12").
		WithActor("ana")...)

	m := decode(t, &buf)
	assert.Equal(t, "Transaction created", m["msg"])
	assert.Equal(t, ComponentLedger, m[FieldComponent])
	assert.Equal(t, float64(7), m[FieldTransactionID])
	assert.Equal(t, "45.90", m[FieldAmount])
	assert.Equal(t, "ana", m[FieldActor])

	buf.Reset()
	logger.Debug("hidden")
	assert.Zero(t, buf.Len(), "debug is below the configured level")
}

func TestRequestLoggingLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})
	req := httptest.NewRequest(http.MethodGet, "/api/transactions?kind=expense", nil)

	sl.RequestCompleted(context.Background(), req, http.StatusNotFound, 3*time.Millisecond, "10.0.0.1")
	m := decode(t, &buf)
	assert.Equal(t, "WARN", m["level"])
	assert.Equal(t, float64(404), m[FieldStatusCode])
	assert.Equal(t, false, m[FieldSuccess])

	buf.Reset()
	sl.Failure(context.Background(), "Store failed", errors.New("disk full"),
		ErrorTypeDatabase, ComponentStorage, OpCreate, nil)
	m = decode(t, &buf)
	assert.Equal(t, "ERROR", m["level"])
	assert.Equal(t, ErrorTypeDatabase, m[FieldErrorType])
	assert.Equal(t, ComponentStorage, m[FieldComponent])
}

func TestContextCarriesLogger(t *testing.T) {
	logger := New(DefaultConfig()).WithComponent(ComponentHTTP)
	ctx := NewContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx))
	assert.Equal(t, ComponentHTTP, FromContext(ctx).Component())
	assert.Equal(t, "unknown", FromContext(context.Background()).Component())
}

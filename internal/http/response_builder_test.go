package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cashbook/internal/attachments"
	"cashbook/internal/core"
	"cashbook/internal/importer"
	"cashbook/internal/report"
)

func TestJSONResponseBuilder(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/1").
		JSON(map[string]int{"id": 1}).
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Location"); got != "/api/transactions/1" {
		t.Errorf("Location = %q", got)
	}
	if got := rec.Body.String(); got != "{\"id\":1}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestJSONResponseBuilderWithoutBody(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(rec)
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Errorf("got %d %q, want empty 204", rec.Code, rec.Body.String())
	}
}

func TestErrorFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		message  string
		details  []string
		internal bool
	}{
		{"validation details", &validationError{details: []string{"amount: invalid amount", "kind: invalid kind"}},
			422, "invalid transaction", []string{"amount: invalid amount", "kind: invalid kind"}, false},
		{"malformed body", badRequest{"invalid JSON body"}, 400, "invalid JSON body", nil, false},
		{"missing columns", &importer.MissingColumnsError{Columns: []string{"date", "kind"}},
			422, "missing required columns", []string{"date", "kind"}, false},
		{"wrapped not found", fmt.Errorf("replace: %w", core.ErrNotFound), 404, "transaction not found", nil, false},
		{"attachment not found", attachments.ErrNotFound, 404, "attachment not found", nil, false},
		{"unsupported attachment", attachments.ErrUnsupportedExt, 415, attachments.ErrUnsupportedExt.Error(), nil, false},
		{"domain validation", core.ErrInvalidAmount, 422, "invalid amount", nil, false},
		{"range required", core.ErrRangeRequired, 400, "date range required", nil, false},
		{"unknown format", fmt.Errorf("%w: %q", report.ErrUnknownFormat, "doc"), 400, `unknown report format: "doc"`, nil, false},
		{"too large", &http.MaxBytesError{Limit: 10}, 413, "request body too large", nil, false},
		{"store failure", errors.New("database is locked"), 500, "internal server error", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, internal := errorFor(tt.err)
			if internal != tt.internal {
				t.Errorf("internal = %v, want %v", internal, tt.internal)
			}
			rec := httptest.NewRecorder()
			b.Write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.message {
				t.Errorf("error = %q, want %q", body.Error, tt.message)
			}
			if fmt.Sprint(body.Details) != fmt.Sprint(tt.details) {
				t.Errorf("details = %v, want %v", body.Details, tt.details)
			}
		})
	}
}

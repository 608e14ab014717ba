// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// query filters, path ids and transaction payloads in JSON or multipart form.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cashbook/internal/core"
)

// amountField accepts a JSON number or string so clients may send 45.9 or "45,90".
type amountField string

func (a *amountField) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

// transactionRequest is the payload of create and replace.
type transactionRequest struct {
	Date          string      `json:"date"`
	Description   string      `json:"description"`
	Amount        amountField `json:"amount"`
	Kind          string      `json:"kind"`
	Category      string      `json:"category"`
	PaymentMethod string      `json:"payment_method"`
	Notes         string      `json:"notes"`
}

// transactionRequestFromForm reads the same fields from a parsed form.
func transactionRequestFromForm(form url.Values) transactionRequest {
	return transactionRequest{
		Date:          form.Get("date"),
		Description:   form.Get("description"),
		Amount:        amountField(form.Get("amount")),
		Kind:          form.Get("kind"),
		Category:      form.Get("category"),
		PaymentMethod: form.Get("payment_method"),
		Notes:         form.Get("notes"),
	}
}

// toTransaction validates every field and reports all problems at once.
func (req transactionRequest) toTransaction() (core.Transaction, error) {
	var details []string
	tx := core.Transaction{
		Description:   core.CleanDescription(sanitizeInput(req.Description)),
		Category:      sanitizeInput(req.Category),
		PaymentMethod: sanitizeInput(req.PaymentMethod),
		Notes:         sanitizeInput(req.Notes),
	}

	if d, err := core.ParseDate(strings.TrimSpace(req.Date)); err != nil {
		details = append(details, "date: must be a valid YYYY-MM-DD date")
	} else {
		tx.Date = d
	}
	if tx.Description == "" {
		details = append(details, "description: must not be empty")
	}
	if cents, err := core.ParseDecimalToCents(string(req.Amount)); err != nil {
		details = append(details, "amount: must be a positive decimal")
	} else {
		tx.Amount = core.Money{Cents: cents}
	}
	if k, err := core.ParseKind(req.Kind); err != nil {
		details = append(details, "kind: must be income or expense")
	} else {
		tx.Kind = k
	}
	if tx.Category == "" {
		tx.Category = core.DefaultCategory
	}

	if len(details) > 0 {
		return core.Transaction{}, &validationError{details: details}
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, &validationError{details: []string{err.Error()}}
	}
	return tx, nil
}

// decodeJSON decodes exactly one JSON object into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return err
		}
		return badRequest{msg: "invalid JSON body: " + err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return badRequest{msg: "invalid JSON body: trailing data"}
	}
	return nil
}

// parseFilter builds a filter from start, end, kind and category. A lone start
// or end restricts one side only; the category is matched exactly.
func parseFilter(q url.Values) (core.Filter, error) {
	f := core.All()

	var start, end *core.Date
	for _, p := range []struct {
		key string
		dst **core.Date
	}{{"start", &start}, {"end", &end}} {
		v := strings.TrimSpace(q.Get(p.key))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.Filter{}, badRequest{msg: fmt.Sprintf("invalid %s date %q: want YYYY-MM-DD", p.key, v)}
		}
		*p.dst = &d
	}
	switch {
	case start != nil && end != nil:
		f = core.Between(*start, *end)
	case start != nil:
		f = f.WithSince(*start)
	case end != nil:
		f = f.WithUntil(*end)
	}

	if v := strings.TrimSpace(q.Get("kind")); v != "" {
		k, err := core.ParseKind(v)
		if err != nil {
			return core.Filter{}, badRequest{msg: fmt.Sprintf("invalid kind %q: want income or expense", v)}
		}
		f = f.WithKind(k)
	}
	if v := q.Get("category"); v != "" {
		f = f.WithCategory(v)
	}
	return f, nil
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, badRequest{msg: fmt.Sprintf("invalid transaction id %q", raw)}
	}
	return id, nil
}

// parseMonths reads the months query parameter, defaulting to def.
func parseMonths(q url.Values, def int) (int, error) {
	v := strings.TrimSpace(q.Get("months"))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 120 {
		return 0, badRequest{msg: fmt.Sprintf("invalid months %q: want 1 to 120", v)}
	}
	return n, nil
}

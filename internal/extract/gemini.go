package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"cashbook/internal/core"
)

// DefaultModel is used when GEMINI_MODEL is unset.
const DefaultModel = "gemini-2.5-flash"

const prompt = "You read receipts, invoices and payment slips.\n" +
	"Find the total amount paid in the attached document.\n" +
	"Return STRICT JSON only, with no code fences and no extra text:\n" +
	"{\"amount\": \"1234.56\"}\n" +
	"Use a dot as decimal separator and no thousands separator.\n" +
	"If no amount can be read, return {\"amount\": null}.\n"

// Generator is the slice of the genai models API used here.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini extracts amounts with a multimodal model.
type Gemini struct {
	models Generator
	model  string
}

// NewGemini creates a client from the environment (GOOGLE_API_KEY or Vertex settings).
func NewGemini(ctx context.Context, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return NewGeminiWith(client.Models, model), nil
}

func NewGeminiWith(models Generator, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: models, model: model}
}

func (g *Gemini) ExtractAmount(ctx context.Context, data []byte, mimeType string) (core.Money, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			},
		},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return core.Money{}, fmt.Errorf("generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return core.Money{}, ErrNoAmount
	}
	m, err := parseAmount(raw)
	if err != nil {
		slog.WarnContext(ctx, "Unreadable extraction response", "model", g.model, "error", err)
		return core.Money{}, err
	}
	return m, nil
}

// parseAmount reads {"amount": ...} where amount is a string, a number or null.
func parseAmount(raw string) (core.Money, error) {
	var payload struct {
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &payload); err != nil {
		return core.Money{}, fmt.Errorf("unmarshal model response: %w", err)
	}
	value := strings.Trim(strings.TrimSpace(string(payload.Amount)), `"`)
	if value == "" || value == "null" {
		return core.Money{}, ErrNoAmount
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return core.Money{}, fmt.Errorf("%w: %v", core.ErrInvalidAmount, err)
	}
	m, err := core.MoneyFromDecimal(d.Abs())
	if err != nil {
		return core.Money{}, err
	}
	if err := m.Validate(); err != nil {
		return core.Money{}, ErrNoAmount
	}
	return m, nil
}

// cleanModelJSON strips markdown fences and keeps the outermost object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

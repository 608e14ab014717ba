package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// DateLayout is the canonical storage form of a Date.
const DateLayout = "2006-01-02"

// DefaultCategory is used when an entry arrives without a category.
const DefaultCategory = "Outros"

// DefaultColor is the neutral display color for unknown categories.
const DefaultColor = "#6c757d"

// MaxDescriptionLength is counted in characters, not bytes.
const MaxDescriptionLength = 200

type (
	Kind string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID            int64
		Description   string
		Amount        Money
		Kind          Kind
		Category      string
		Date          Date
		PaymentMethod string
		AttachmentRef string
		Notes         string
		CreatedAt     time.Time
	}

	Category struct {
		Name  string
		Kind  Kind
		Color string
	}

	// DedupKey identifies a transaction for import deduplication. Category is not part of it.
	DedupKey struct {
		Date        Date
		Description string
		Amount      Money
		Kind        Kind
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidKind      = errors.New("invalid kind")
	ErrEmptyDescription = errors.New("empty description")
	ErrLongDescription  = fmt.Errorf("description too long (max %d characters)", MaxDescriptionLength)
	ErrEmptyCategory    = errors.New("empty category")
	ErrNotFound         = errors.New("transaction not found")
	ErrRangeRequired    = errors.New("date range required")
	ErrInvalidWindow    = errors.New("invalid month window")
)

// ParseKind lower-cases and trims s before matching it against the known kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// Label returns the localized label shown in reports.
func (k Kind) Label() string {
	switch k {
	case KindIncome:
		return "Receita"
	case KindExpense:
		return "Despesa"
	default:
		return string(k)
	}
}

// Kinds lists every kind in display order.
func Kinds() []Kind {
	return []Kind{KindIncome, KindExpense}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate accepts the ISO form (2024-01-31) and the day-first form (31/01/2024).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{DateLayout, "02/01/2006", "2/1/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Date{Time: t}, nil
		}
	}
	return Date{}, ErrInvalidDate
}

// String returns the ISO representation used for storage and comparison.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// Display returns the day/month/year form used in reports.
func (d Date) Display() string {
	return d.Format("02/01/2006")
}

// AddDays returns the date n days later (or earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (m Money) Validate() error {
	if m.Cents <= 0 || m.Cents >= MaxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrLongDescription
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Key returns the dedup tuple of t.
func (t Transaction) Key() DedupKey {
	return DedupKey{Date: t.Date, Description: t.Description, Amount: t.Amount, Kind: t.Kind}
}

// DefaultCategories is the seeded category set. The SQL migrations insert the same rows.
func DefaultCategories() []Category {
	return []Category{
		{Name: "Salário", Kind: KindIncome, Color: "#28a745"},
		{Name: "Freelance", Kind: KindIncome, Color: "#20c997"},
		{Name: "Investimentos", Kind: KindIncome, Color: "#17a2b8"},
		{Name: "Vendas", Kind: KindIncome, Color: "#6f42c1"},
		{Name: "Outros", Kind: KindIncome, Color: DefaultColor},
		{Name: "Alimentação", Kind: KindExpense, Color: "#dc3545"},
		{Name: "Moradia", Kind: KindExpense, Color: "#fd7e14"},
		{Name: "Transporte", Kind: KindExpense, Color: "#ffc107"},
		{Name: "Saúde", Kind: KindExpense, Color: "#e83e8c"},
		{Name: "Educação", Kind: KindExpense, Color: "#6f42c1"},
		{Name: "Lazer", Kind: KindExpense, Color: "#20c997"},
		{Name: "Outros", Kind: KindExpense, Color: DefaultColor},
	}
}

// Equal compares two dedup keys by calendar date and exact field values.
func (k DedupKey) Equal(o DedupKey) bool {
	return k.Date.String() == o.Date.String() &&
		k.Description == o.Description &&
		k.Amount == o.Amount &&
		k.Kind == o.Kind
}

var lineBreaks = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// CleanDescription trims s and turns CRLF and lone CR line breaks into LF, the
// only form that survives a CSV export and re-import unchanged.
func CleanDescription(s string) string {
	return strings.TrimSpace(lineBreaks.Replace(s))
}

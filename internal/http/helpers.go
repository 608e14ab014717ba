package http

import (
	"strings"
	"time"

	"cashbook/internal/core"
)

// sanitizeInput removes control characters other than tab and newlines, then trims.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}

// moneyDTO carries an amount both machine-readable and formatted for display.
type moneyDTO struct {
	Value   string `json:"value"`
	Cents   int64  `json:"cents"`
	Display string `json:"display"`
}

type transactionDTO struct {
	ID            int64     `json:"id"`
	Date          string    `json:"date"`
	Description   string    `json:"description"`
	Amount        moneyDTO  `json:"amount"`
	Kind          core.Kind `json:"kind"`
	Category      string    `json:"category"`
	Color         string    `json:"color"`
	PaymentMethod string    `json:"payment_method,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	HasAttachment bool      `json:"has_attachment"`
	CreatedAt     time.Time `json:"created_at"`
}

type balanceDTO struct {
	Income  moneyDTO `json:"income"`
	Expense moneyDTO `json:"expense"`
	Balance moneyDTO `json:"balance"`
}

type categoryTotalDTO struct {
	Category string   `json:"category"`
	Total    moneyDTO `json:"total"`
	Count    int      `json:"count"`
	Color    string   `json:"color"`
}

type monthTotalDTO struct {
	Month   string   `json:"month"`
	Income  moneyDTO `json:"income"`
	Expense moneyDTO `json:"expense"`
	Balance moneyDTO `json:"balance"`
	Count   int      `json:"count"`
}

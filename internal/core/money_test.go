package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1e3", 0, false},
		{",5", 50, true},
		{"0.004", 0, false},
		{"10000000000000", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error", tc.in)
			}
		}
	}
}

func TestMoneyDecimal(t *testing.T) {
	if got := (Money{Cents: 123450}).String(); got != "1234.50" {
		t.Fatalf("String = %q", got)
	}
	got, err := MoneyFromDecimal(decimal.RequireFromString("10.005"))
	if err != nil || got.Cents != 1001 {
		t.Fatalf("MoneyFromDecimal = %d, %v", got.Cents, err)
	}
}

func TestMoneyFromDecimalRejectsOverflow(t *testing.T) {
	for _, in := range []string{
		"99999999999999999999",
		"184467440737095516.17",
		"10000000000000",
		"-10000000000000",
		"1e30",
	} {
		if m, err := MoneyFromDecimal(decimal.RequireFromString(in)); err == nil {
			t.Errorf("MoneyFromDecimal(%s) = %d cents, want error", in, m.Cents)
		}
	}
	m, err := MoneyFromDecimal(decimal.RequireFromString("9999999999999.99"))
	if err != nil || m.Cents != MaxCents-1 {
		t.Fatalf("largest amount = %d, %v", m.Cents, err)
	}
}

func TestCurrencyFormat(t *testing.T) {
	cases := []struct {
		f    CurrencyFormat
		in   int64
		want string
	}{
		{FormatPtBR, 123456, "R$ 1.234,56"},
		{FormatPtBR, 5, "R$ 0,05"},
		{FormatPtBR, 100000000, "R$ 1.000.000,00"},
		{FormatPtBR, -305000, "-R$ 3.050,00"},
		{FormatEnUS, 123456, "R$ 1,234.56"},
		{FormatEnUS, 99900, "R$ 999.00"},
	}
	for _, tc := range cases {
		if got := tc.f.Format(Money{Cents: tc.in}); got != tc.want {
			t.Errorf("Format(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if _, ok := CurrencyFormatFor("de-DE"); ok {
		t.Fatalf("unknown locale reported as known")
	}
}

package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatBRL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"50", "R$ 50,00"},
		{"0", "R$ 0,00"},
		{"1234.5", "R$ 1.234,50"},
		{"1000000", "R$ 1.000.000,00"},
		{"-50", "R$ -50,00"},
		{"999.999", "R$ 1.000,00"}, // StringFixed rounds
	}
	for _, tc := range cases {
		v, err := decimal.NewFromString(tc.in)
		if err != nil {
			t.Fatalf("bad case %q: %v", tc.in, err)
		}
		if got := FormatBRL(v); got != tc.want {
			t.Errorf("FormatBRL(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCentsRoundTrip(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
	}{
		{"12.34", 1234},
		{"12.345", 1235}, // half-up on the third decimal
		{"0.01", 1},
		{"1000000", 100000000},
	}
	for _, tc := range cases {
		v, _ := decimal.NewFromString(tc.in)
		got := Cents(v)
		if got != tc.cents {
			t.Errorf("Cents(%s) = %d, want %d", tc.in, got, tc.cents)
		}
		back := FromCents(got)
		if !back.Equal(decimal.New(tc.cents, -2)) {
			t.Errorf("FromCents(%d) = %s", got, back)
		}
	}
}

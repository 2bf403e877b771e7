package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
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
		{"0.001", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"$5", 0, false},
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

func TestMoneyFormatting(t *testing.T) {
	if s := (Money{Cents: 1250}).String(); s != "12.50" {
		t.Fatalf("String() = %s", s)
	}
	if s := (Money{Cents: -75}).String(); s != "-0.75" {
		t.Fatalf("String() = %s", s)
	}
	out, _ := json.Marshal(Money{Cents: 2000})
	if string(out) != "20" {
		t.Fatalf("MarshalJSON = %s", out)
	}
}

func TestMoneyUnmarshal(t *testing.T) {
	var m Money
	for in, want := range map[string]int64{`12.5`: 1250, `"7.25"`: 725, `3`: 300} {
		if err := json.Unmarshal([]byte(in), &m); err != nil || m.Cents != want {
			t.Fatalf("%s expected %d, got %d (err=%v)", in, want, m.Cents, err)
		}
	}
	if err := json.Unmarshal([]byte(`"lots"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}

	// Non-positive amounts decode; Validate rejects them.
	if err := json.Unmarshal([]byte(`-50`), &m); err != nil || m.Cents != -5000 {
		t.Fatalf("-50 expected -5000, got %d (err=%v)", m.Cents, err)
	}
	for _, in := range []string{`1e30`, `-1e30`, `"92233720368547758.08"`} {
		if err := json.Unmarshal([]byte(in), &m); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%s expected ErrInvalidAmount, got %v (cents=%d)", in, err, m.Cents)
		}
	}
}

func TestMoneyAddSaturates(t *testing.T) {
	cases := []struct {
		a, b, want int64
	}{
		{1250, 725, 1975},
		{1250, -2000, -750},
		{MaxCents, MaxCents, math.MaxInt64},
		{-MaxCents, -MaxCents, math.MinInt64},
		{math.MaxInt64, -1, math.MaxInt64 - 1},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.a}).Add(Money{Cents: tc.b}); got.Cents != tc.want {
			t.Errorf("%d + %d = %d, want %d", tc.a, tc.b, got.Cents, tc.want)
		}
	}
}

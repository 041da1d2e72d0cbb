package core

import "testing"

func TestParseAmount(t *testing.T) {
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
		{"1.005", 101, true}, // half away from zero
		{"-1.005", -101, true},
		{" -2.50 ", -250, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"", 0, false},
		{"1e30", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		0:       "0.00",
		5:       "0.05",
		-5:      "-0.05",
		123456:  "1234.56",
		-100000: "-1000.00",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("%d: got %q, want %q", cents, got, want)
		}
	}
}

func TestMoneyDecimalFraction(t *testing.T) {
	if got := (Money{Cents: 1234}).Decimal(0).StringFixed(0); got != "1234" {
		t.Fatalf("zero-fraction currency: got %q", got)
	}
	if got := (Money{Cents: 1234}).Decimal(3).StringFixed(3); got != "1.234" {
		t.Fatalf("three-fraction currency: got %q", got)
	}
}

func TestParseAmountScale(t *testing.T) {
	cases := []struct {
		in       string
		fraction int
		out      int64
	}{
		{"1234", 0, 1234},
		{"12.5", 0, 13},
		{"1.234", 3, 1234},
		{"-0,5", 3, -500},
	}
	for _, tc := range cases {
		got, err := ParseAmountScale(tc.in, tc.fraction)
		if err != nil || got.Cents != tc.out {
			t.Fatalf("%q/%d expected %d, got %d (err=%v)", tc.in, tc.fraction, tc.out, got.Cents, err)
		}
	}
}

package core

import (
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"plain", "150", "150", true},
		{"negative", "-150", "-150", true},
		{"decimal", "12.34", "12.34", true},
		{"thousands comma", "50,000", "50000", true},
		{"rupee symbol", "₹1,200.50", "1200.5", true},
		{"euro symbol", "€99", "99", true},
		{"parenthesized negative", "(1,200.00)", "-1200", true},
		{"embedded number", "INR 450.00 DR", "450", true},
		{"whitespace", "  42 ", "42", true},
		{"empty", "", "0", false},
		{"garbage", "xyz", "0", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			if ok != tt.ok {
				t.Fatalf("ParseAmount(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"2", 2},
		{"2.0", 2},
		{"0", 0},
		{"-3", 0},
		{"", 0},
		{"abc", 0},
	}
	for _, tt := range tests {
		if got := ParseQuantity(tt.in); got != tt.want {
			t.Errorf("ParseQuantity(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

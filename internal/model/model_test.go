package model

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestDecimalRounding(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0.0841359150351112, "0.08413592"},
		{-0.0043277, "-0.0043277"},
		{3.12, "3.12"},
		{0, "0"},
		{-3.779391234567891, "-3.77939123"},
	}
	for _, tt := range tests {
		if got := Decimal(tt.in).String(); got != tt.want {
			t.Errorf("Decimal(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDecimalNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if d := Decimal(f); !d.IsZero() {
			t.Errorf("Decimal(%v) = %s, want 0", f, d)
		}
	}
}

func TestQuoteJSONUsesDecimalStrings(t *testing.T) {
	q := Quote{ID: "q1", Delta: Decimal(0.66588)}
	b, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"delta":"0.66588"`) {
		t.Errorf("delta not encoded as a decimal string: %s", b)
	}
}

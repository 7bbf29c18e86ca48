package grading

import (
	"testing"
)

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a", "A"},
		{" b + ", "B+"},
		{"a-\t", "A-"},
		{"", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSymbol(tt.in); got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewScale_rejectsBadInput(t *testing.T) {
	if _, err := NewScale(nil, nil, 1); err == nil {
		t.Error("expected error for empty scale")
	}
	if _, err := NewScale(map[string]float64{"A": -1}, nil, 1); err == nil {
		t.Error("expected error for negative points")
	}
	if _, err := NewScale(map[string]float64{"a": 4, "A ": 3}, nil, 1); err == nil {
		t.Error("expected error for symbols that normalize to the same key")
	}
	if _, err := NewScale(map[string]float64{"P": 4}, []string{"p"}, 1); err == nil {
		t.Error("expected error when a pass symbol also has points")
	}
}

func TestScale_ParseGrade(t *testing.T) {
	s := DefaultScale()
	tests := []struct {
		name       string
		raw        string
		wantOK     bool
		wantSymbol string
		wantNum    string
	}{
		{"letter", "A", true, "A", ""},
		{"lowercase with spaces", " b + ", true, "B+", ""},
		{"pass symbol", "p", true, "P", ""},
		{"numeric in range", "3.7", true, "", "3.7"},
		{"numeric decimal comma", "2,5", true, "", "2.5"},
		{"numeric above max", "4.5", false, "", ""},
		{"unknown symbol", "Z", false, "", ""},
		{"empty", "", false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, ok := s.ParseGrade(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if g.Symbol != tt.wantSymbol {
				t.Errorf("symbol = %q, want %q", g.Symbol, tt.wantSymbol)
			}
			if tt.wantNum != "" {
				if g.Numeric == nil || g.Numeric.String() != tt.wantNum {
					t.Errorf("numeric = %v, want %s", g.Numeric, tt.wantNum)
				}
			}
		})
	}
}

func TestScale_Passed(t *testing.T) {
	s := DefaultScale()
	for raw, want := range map[string]bool{"A": true, "D": true, "D-": false, "F": false, "P": true, "1.0": true, "0.5": false} {
		g, ok := s.ParseGrade(raw)
		if !ok {
			t.Fatalf("ParseGrade(%q) failed", raw)
		}
		if got := s.Passed(g); got != want {
			t.Errorf("Passed(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestScale_Symbols(t *testing.T) {
	s, err := NewScale(map[string]float64{"B": 3, "A": 4, "AA": 4}, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := s.Symbols()
	want := []string{"A", "AA", "B"}
	if len(got) != len(want) {
		t.Fatalf("Symbols() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Symbols()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.344", 1234, false},
		{"12.345", 1235, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{".5", 50, false},
		{"7.", 700, false},
		{" 20 ", 2000, false},
		{"15.5", 1550, false},
		{"", 0, true},
		{".", 0, true},
		{"-1", 0, true},
		{"+1", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"1e3", 0, true},
		{"99999999999999999999", 0, true},
		{"100000000000", MaxCents, false},
		{"100000000000.00", MaxCents, false},
		{"100000000000.01", 0, true},
		{"99999999999.995", MaxCents, false},
		{"100000000001", 0, true},
		{"92233720368547757.00", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDecimalToCents(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalToCents(%q) expected error, got %d", tt.in, got)
			} else if !IsValidation(err) {
				t.Errorf("ParseDecimalToCents(%q) error %v is not a validation error", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalToCents(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatCents(t *testing.T) {
	tests := map[int64]string{
		0:      "0.00",
		5:      "0.05",
		1234:   "12.34",
		3550:   "35.50",
		-550:   "-5.50",
		100000: "1000.00",
	}
	for in, want := range tests {
		if got := FormatCents(in); got != want {
			t.Errorf("FormatCents(%d) = %q, want %q", in, got, want)
		}
	}
	if got := (Money{Cents: -5}).String(); got != "-0.05" {
		t.Errorf("Money.String() = %q", got)
	}
}

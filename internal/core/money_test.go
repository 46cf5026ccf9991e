package core

import "testing"

func TestParseAmount(t *testing.T) {
	ok := map[string]string{
		"12.34":   "12.34",
		"12,34":   "12.34",
		" 3000 ":  "3000",
		"-5":      "-5",
		"0":       "0",
		"1e3":     "1000",
		"0.10":    "0.1",
		"1000000": "1000000",
	}
	for in, want := range ok {
		got, err := ParseAmount(in)
		if err != nil {
			t.Fatalf("ParseAmount(%q) error: %v", in, err)
		}
		if !got.Equal(dec(want)) {
			t.Fatalf("ParseAmount(%q) = %s, want %s", in, got, want)
		}
	}

	bad := []string{"", "abc", "1.2.3", "1,2,3", "12€", "NaN", "Inf"}
	for _, in := range bad {
		if _, err := ParseAmount(in); err == nil {
			t.Fatalf("ParseAmount(%q) expected error", in)
		} else if !IsValidation(err) {
			t.Fatalf("ParseAmount(%q) expected validation error, got %T", in, err)
		}
	}
}

func TestParseAmount_OutOfRange(t *testing.T) {
	for _, in := range []string{
		"1e999999999",
		"-1e999999999",
		"1e-999999999",
		"1e21",
		"1e15",
		"1000000000000000",
		"-1000000000000000",
		"0.000000000000000000001",
	} {
		_, err := ParseAmount(in)
		if !IsValidation(err) {
			t.Fatalf("ParseAmount(%q) error = %v, want validation error", in, err)
		}
	}

	for _, in := range []string{"999999999999999", "-999999999999999.99", "1e14", "0.00000000000000000001"} {
		if _, err := ParseAmount(in); err != nil {
			t.Fatalf("ParseAmount(%q) error: %v", in, err)
		}
	}
}

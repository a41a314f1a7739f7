package utils

import (
	"testing"
)

func TestUniqueSlicePreservesFirstOccurrenceOrder(t *testing.T) {
	got := UniqueSlice([]string{"b", "a", "b", "c", "a"})
	want := []string{"b", "a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"  2 1/16   5m ": "2 1/16 5M",
		"bx-154":         "BX-154",
		"":               "",
	}
	for input, want := range cases {
		if got := NormalizeLabel(input); got != want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParseDecimalStripsFormatting(t *testing.T) {
	value, err := ParseDecimal(" 5,000 ")
	if err != nil {
		t.Fatalf("ParseDecimal: %v", err)
	}
	if value.IntPart() != 5000 {
		t.Fatalf("got %s, want 5000", value.String())
	}

	if _, err := ParseDecimal("five"); err == nil {
		t.Fatal("non-numeric input must error")
	}
}

func TestNilIfEmpty(t *testing.T) {
	if NilIfEmpty("") != nil {
		t.Error("empty string must map to nil")
	}
	if ptr := NilIfEmpty("x"); ptr == nil || *ptr != "x" {
		t.Error("non-empty value must round-trip")
	}
}

func TestDereferencePtrDefaults(t *testing.T) {
	var p *int
	if got := DereferencePtr(p, 7); got != 7 {
		t.Errorf("nil pointer with default = %d, want 7", got)
	}
	v := 3
	if got := DereferencePtr(&v, 7); got != 3 {
		t.Errorf("non-nil pointer = %d, want 3", got)
	}
}

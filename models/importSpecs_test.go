package models

import (
	"testing"
)

func TestNormalizeSpecRowFullRow(t *testing.T) {
	row := []string{
		" 2 1/16 ", "5m", "5,000", "8", "3/4", "2 1/16  5M", "r-24", "1", "2,500",
		"5000", "5000", "", "",
	}
	spec, err := normalizeSpecRow(row)
	if err != nil {
		t.Fatalf("normalizeSpecRow: %v", err)
	}
	if spec.NominalSize != "2 1/16" {
		t.Errorf("nominal size = %q", spec.NominalSize)
	}
	if spec.PressureClass != "5M" {
		t.Errorf("pressure class = %q, want uppercased 5M", spec.PressureClass)
	}
	if spec.PressureClassPSI != 5000 {
		t.Errorf("pressure class psi = %d, comma-formatted cell must parse", spec.PressureClassPSI)
	}
	if spec.BoltCount != 8 || spec.BoltSize != "3/4" {
		t.Errorf("bolts = %d %q", spec.BoltCount, spec.BoltSize)
	}
	if spec.FlangeSize != "2 1/16 5M" {
		t.Errorf("flange size = %q, internal whitespace must collapse", spec.FlangeSize)
	}
	if spec.RingGasket != "R-24" {
		t.Errorf("ring gasket = %q", spec.RingGasket)
	}
	if spec.TruckPSI != 2500 {
		t.Errorf("truck psi = %d", spec.TruckPSI)
	}
	if spec.GateValvePSI == nil || *spec.GateValvePSI != 5000 {
		t.Errorf("gate valve psi = %v", spec.GateValvePSI)
	}
	if spec.CheckValvePSI != nil || spec.ChokePSI != nil {
		t.Error("empty pressure cells must map to nil, not zero")
	}
}

func TestNormalizeSpecRowShortRowTreatsMissingAsEmpty(t *testing.T) {
	// Excel drops trailing empty cells; pressure columns may be absent.
	row := []string{"3 1/8", "10M", "10000", "12", "7/8", "3 1/8 10M", "BX-154", "3", "3000"}
	spec, err := normalizeSpecRow(row)
	if err != nil {
		t.Fatalf("normalizeSpecRow: %v", err)
	}
	if spec.GateValvePSI != nil || spec.PlugValvePSI != nil || spec.CheckValvePSI != nil || spec.ChokePSI != nil {
		t.Fatal("missing trailing cells must map to nil pressures")
	}
}

func TestNormalizeSpecRowRejectsEmptyNaturalKey(t *testing.T) {
	row := []string{"", "10M", "10000", "12", "7/8", "x", "y", "3", "3000"}
	if _, err := normalizeSpecRow(row); err == nil {
		t.Fatal("empty nominal size must be rejected")
	}
}

func TestNormalizeSpecRowRejectsNonPositiveBoltCount(t *testing.T) {
	row := []string{"3 1/8", "10M", "10000", "0", "7/8", "x", "y", "3", "3000"}
	if _, err := normalizeSpecRow(row); err == nil {
		t.Fatal("zero bolt count must be rejected")
	}
}

func TestNormalizeSpecRowRejectsGarbageNumeric(t *testing.T) {
	row := []string{"3 1/8", "10M", "ten thousand", "12", "7/8", "x", "y", "3", "3000"}
	if _, err := normalizeSpecRow(row); err == nil {
		t.Fatal("non-numeric pressure cell must be rejected")
	}
}

func TestCrossCheckWrenchAdvisory(t *testing.T) {
	expected := map[int]int{3: 3000}

	match := &FlangeSpec{ID: 1, WrenchNumber: 3, TruckPSI: 3000}
	if m := crossCheckWrench(match, expected); m != nil {
		t.Fatalf("matching row flagged: %+v", m)
	}

	mismatch := &FlangeSpec{ID: 2, FlangeSize: "3 1/8 10M", WrenchNumber: 3, TruckPSI: 2500}
	m := crossCheckWrench(mismatch, expected)
	if m == nil {
		t.Fatal("mismatching row not flagged")
	}
	if m.ExpectedTruckPSI != 3000 || m.TruckPSI != 2500 {
		t.Fatalf("mismatch detail wrong: %+v", m)
	}

	unknown := &FlangeSpec{ID: 3, WrenchNumber: 99, TruckPSI: 1}
	if m := crossCheckWrench(unknown, expected); m != nil {
		t.Fatal("wrench absent from reference table must not flag")
	}

	unset := &FlangeSpec{ID: 4, WrenchNumber: 0, TruckPSI: 1}
	if m := crossCheckWrench(unset, expected); m != nil {
		t.Fatal("zero wrench number must not flag")
	}
}

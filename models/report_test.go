package models

import (
	"strings"
	"testing"
	"time"
)

func reportFixtureSpec(id int) *FlangeSpec {
	return &FlangeSpec{
		ID: id, NominalSize: "3 1/8", PressureClass: "10M", PressureClassPSI: 10000,
		BoltCount: 12, BoltSize: "7/8", FlangeSize: "3 1/8 10M", RingGasket: "BX-154",
		WrenchNumber: 3, TruckPSI: 3000,
	}
}

func TestReportSingleAndCompositeGroup(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	groupId := "group-a"
	stack := &Stack{
		ID:    7,
		Title: "Frac Stack 7",
		Members: []StackMember{
			{
				ID: 1, Category: PartCategoryGateValve, TargetPSI: intPtr(5000),
				FlangeSpec: reportFixtureSpec(10), Position: 0, CreatedAt: base,
			},
			{
				ID: 2, Category: PartCategoryAdapter, GroupId: &groupId,
				FlangeSpec: reportFixtureSpec(11), Position: 1, CreatedAt: base.Add(time.Minute),
			},
			{
				ID: 3, Category: PartCategoryAdapter, GroupId: &groupId,
				FlangeSpec: reportFixtureSpec(12), Position: 2, CreatedAt: base.Add(2 * time.Minute),
			},
		},
	}

	report := formatStackReport(stack)

	if len(report.Lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(report.Lines), strings.Join(report.Lines, "\n"))
	}
	if !strings.Contains(report.Lines[0], "Target 5000") {
		t.Errorf("line 1 missing target marker: %q", report.Lines[0])
	}
	if !strings.HasPrefix(report.Lines[1], "Composite Unit A — Side 1 – ") {
		t.Errorf("line 2 prefix wrong: %q", report.Lines[1])
	}
	if !strings.HasPrefix(report.Lines[2], "Composite Unit A — Side 2 – ") {
		t.Errorf("line 3 prefix wrong: %q", report.Lines[2])
	}
	for _, line := range report.Lines[1:] {
		if strings.Contains(line, "Target") {
			t.Errorf("composite line carries a target marker: %q", line)
		}
	}

	if report.TotalParts != 3 {
		t.Errorf("total parts = %d, want 3", report.TotalParts)
	}
	if report.TargetRange != "5000" {
		t.Errorf("single target must format as one value, got %q", report.TargetRange)
	}
	if report.PressureClasses != "10M" {
		t.Errorf("pressure classes = %q, want 10M", report.PressureClasses)
	}
}

func TestReportLineFieldOrder(t *testing.T) {
	stack := &Stack{
		ID: 1, Title: "T",
		Members: []StackMember{
			{ID: 1, Category: PartCategoryBlindFlange, FlangeSpec: reportFixtureSpec(1), Position: 0},
		},
	}
	report := formatStackReport(stack)
	want := "Blind Flange – Ring: BX-154 | Size of Bolts: 7/8 | # Bolts: 12 | Flange: 3 1/8 10M | Wrench Required: 3 | Set Truck PSI to: 3000"
	if report.Lines[0] != want {
		t.Fatalf("line = %q\nwant   %q", report.Lines[0], want)
	}
}

// A stray stored target on a geometry-driven member must never print.
func TestReportIgnoresStrayTargetOnGeometryCategory(t *testing.T) {
	stack := &Stack{
		ID: 1, Title: "T",
		Members: []StackMember{
			{ID: 1, Category: PartCategorySpool, TargetPSI: intPtr(5000), FlangeSpec: reportFixtureSpec(1), Position: 0},
		},
	}
	report := formatStackReport(stack)
	if strings.Contains(report.Lines[0], "Target") {
		t.Fatalf("stray target printed: %q", report.Lines[0])
	}
}

func TestReportGroupLettersFollowFirstEncounteredOrder(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	groupB := "group-b"
	groupA := "group-a"
	stack := &Stack{
		ID: 2, Title: "Two Groups",
		Members: []StackMember{
			{ID: 1, Category: PartCategoryAdapter, GroupId: &groupB, FlangeSpec: reportFixtureSpec(1), Position: 0, CreatedAt: base},
			{ID: 2, Category: PartCategoryAdapter, GroupId: &groupA, FlangeSpec: reportFixtureSpec(2), Position: 1, CreatedAt: base.Add(time.Minute)},
			{ID: 3, Category: PartCategoryAdapter, GroupId: &groupB, FlangeSpec: reportFixtureSpec(3), Position: 2, CreatedAt: base.Add(2 * time.Minute)},
			{ID: 4, Category: PartCategoryAdapter, GroupId: &groupA, FlangeSpec: reportFixtureSpec(4), Position: 3, CreatedAt: base.Add(3 * time.Minute)},
		},
	}
	report := formatStackReport(stack)
	if len(report.Lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(report.Lines))
	}
	// group-b was encountered first so it takes letter A.
	if !strings.HasPrefix(report.Lines[0], "Composite Unit A — Side 1") ||
		!strings.HasPrefix(report.Lines[1], "Composite Unit A — Side 2") ||
		!strings.HasPrefix(report.Lines[2], "Composite Unit B — Side 1") ||
		!strings.HasPrefix(report.Lines[3], "Composite Unit B — Side 2") {
		t.Fatalf("letters out of order:\n%s", strings.Join(report.Lines, "\n"))
	}
}

func TestReportSidesOrderByCreationTime(t *testing.T) {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	groupId := "g"
	// Positions reversed relative to creation time: side order follows
	// creation, not stack position.
	stack := &Stack{
		ID: 3, Title: "T",
		Members: []StackMember{
			{ID: 2, Category: PartCategoryAdapter, GroupId: &groupId, FlangeSpec: reportFixtureSpec(20), Position: 0, CreatedAt: base.Add(time.Minute)},
			{ID: 1, Category: PartCategoryAdapter, GroupId: &groupId, FlangeSpec: reportFixtureSpec(10), Position: 1, CreatedAt: base},
		},
	}
	report := formatStackReport(stack)
	if !strings.Contains(report.Lines[0], "Wrench Required: 3") {
		t.Fatalf("unexpected line content: %q", report.Lines[0])
	}
	if !strings.HasPrefix(report.Lines[0], "Composite Unit A — Side 1") {
		t.Fatalf("earliest-created member must be side 1, got %q", report.Lines[0])
	}
}

func TestReportSummaryEmptyStack(t *testing.T) {
	report := formatStackReport(&Stack{ID: 9, Title: "Empty"})
	if report.TotalParts != 0 {
		t.Errorf("total parts = %d, want 0", report.TotalParts)
	}
	if report.TargetRange != "N/A" {
		t.Errorf("target range = %q, want N/A", report.TargetRange)
	}
	if report.PressureClasses != "N/A" {
		t.Errorf("pressure classes = %q, want N/A", report.PressureClasses)
	}
}

func TestReportTargetRangeSpansMinMax(t *testing.T) {
	stack := &Stack{
		ID: 4, Title: "T",
		Members: []StackMember{
			{ID: 1, Category: PartCategoryGateValve, TargetPSI: intPtr(10000), FlangeSpec: reportFixtureSpec(1), Position: 0},
			{ID: 2, Category: PartCategoryPlugValve, TargetPSI: intPtr(5000), FlangeSpec: reportFixtureSpec(2), Position: 1},
		},
	}
	report := formatStackReport(stack)
	if report.TargetRange != "5000 - 10000" {
		t.Fatalf("target range = %q, want 5000 - 10000", report.TargetRange)
	}
}

func TestGroupLetterSequence(t *testing.T) {
	cases := map[int]string{0: "A", 1: "B", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA"}
	for index, want := range cases {
		if got := groupLetter(index); got != want {
			t.Errorf("groupLetter(%d) = %q, want %q", index, got, want)
		}
	}
}

func TestRenderPlainTextIncludesSummary(t *testing.T) {
	report := &ReportDocument{
		Title:           "Frac Stack 7",
		Lines:           []string{"line one"},
		TotalParts:      1,
		TargetRange:     "5000",
		PressureClasses: "10M",
	}
	content, extension, err := RenderPlainText(report)
	if err != nil {
		t.Fatalf("RenderPlainText: %v", err)
	}
	if extension != "txt" {
		t.Errorf("extension = %q, want txt", extension)
	}
	text := string(content)
	for _, want := range []string{"Frac Stack 7", "line one", "Total Parts: 1", "Target Range: 5000", "Pressure Classes: 10M"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered output missing %q", want)
		}
	}
}

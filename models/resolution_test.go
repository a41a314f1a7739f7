package models

import (
	"strconv"
	"testing"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

// fixtureCatalog mirrors a small field catalog: two 10M gate valve rows that
// stay ambiguous until bolt count is chosen, plus rows covering the other
// category branches.
func fixtureCatalog() []*FlangeSpec {
	return []*FlangeSpec{
		{
			ID: 1, NominalSize: "2 1/16", PressureClass: "5M", PressureClassPSI: 5000,
			BoltCount: 8, BoltSize: "3/4", FlangeSize: "2 1/16 5M", RingGasket: "R-24",
			WrenchNumber: 1, TruckPSI: 2500,
			GateValvePSI: intPtr(5000), PlugValvePSI: intPtr(5000),
		},
		{
			ID: 2, NominalSize: "3 1/8", PressureClass: "10M", PressureClassPSI: 10000,
			BoltCount: 12, BoltSize: "7/8", FlangeSize: "3 1/8 10M", RingGasket: "BX-154",
			WrenchNumber: 3, TruckPSI: 3000,
			GateValvePSI: intPtr(10000),
		},
		{
			ID: 3, NominalSize: "4 1/16", PressureClass: "10M", PressureClassPSI: 10000,
			BoltCount: 16, BoltSize: "1 1/8", FlangeSize: "4 1/16 10M", RingGasket: "BX-155",
			WrenchNumber: 5, TruckPSI: 3000,
			GateValvePSI: intPtr(10000), ChokePSI: intPtr(10000),
		},
		{
			ID: 4, NominalSize: "4 1/16", PressureClass: "5M", PressureClassPSI: 5000,
			BoltCount: 8, BoltSize: "1 1/8", FlangeSize: "4 1/16 5M", RingGasket: "R-39",
			WrenchNumber: 4, TruckPSI: 2500,
			PlugValvePSI: intPtr(5000),
		},
		{
			// Zero PSI is a not-applicable sentinel, never an option.
			ID: 5, NominalSize: "7 1/16", PressureClass: "10M", PressureClassPSI: 10000,
			BoltCount: 12, BoltSize: "1 1/2", FlangeSize: "7 1/16 10M", RingGasket: "BX-156",
			WrenchNumber: 6, TruckPSI: 3000,
			CheckValvePSI: intPtr(0),
		},
	}
}

func TestTargetOptionsDistinctSortedPositive(t *testing.T) {
	options := targetOptionsFromSpecs(PartCategoryGateValve, fixtureCatalog())
	want := []int{5000, 10000}
	if len(options) != len(want) {
		t.Fatalf("got %v, want %v", options, want)
	}
	for i := range want {
		if options[i] != want[i] {
			t.Fatalf("got %v, want %v", options, want)
		}
	}
}

func TestTargetOptionsExcludeZeroPSI(t *testing.T) {
	options := targetOptionsFromSpecs(PartCategoryCheckValve, fixtureCatalog())
	if len(options) != 0 {
		t.Fatalf("zero PSI rows must not produce options, got %v", options)
	}
}

func TestTargetOptionsEmptyForGeometryCategories(t *testing.T) {
	for _, category := range []PartCategory{PartCategoryBlindFlange, PartCategorySpool, PartCategoryAdapter} {
		options := targetOptionsFromSpecs(category, fixtureCatalog())
		if len(options) != 0 {
			t.Errorf("%s: geometry category offered targets %v", category, options)
		}
	}
}

func TestTargetOptionsEmptyForUnknownCategory(t *testing.T) {
	options := targetOptionsFromSpecs(PartCategory("Launcher"), fixtureCatalog())
	if len(options) != 0 {
		t.Fatalf("unknown category must yield no options, got %v", options)
	}
}

func TestFilterUnknownCategoryFailsClosed(t *testing.T) {
	candidates := filterSpecs(PartCategory("Launcher"), SelectionFilter{}, fixtureCatalog())
	if len(candidates) != 0 {
		t.Fatalf("unknown category must match nothing, got %d candidates", len(candidates))
	}
}

func TestFilterImpossibleCombinationIsEmptyNotError(t *testing.T) {
	candidates := filterSpecs(PartCategoryGateValve, SelectionFilter{TargetPSI: intPtr(15000)}, fixtureCatalog())
	if len(candidates) != 0 {
		t.Fatalf("absent pressure must match nothing, got %d candidates", len(candidates))
	}
}

func TestFilterTargetThenBoltCountConverges(t *testing.T) {
	catalog := fixtureCatalog()

	// Target alone leaves two 10M gate valve rows.
	filter := SelectionFilter{TargetPSI: intPtr(10000)}
	candidates := filterSpecs(PartCategoryGateValve, filter, catalog)
	if len(candidates) != 2 {
		t.Fatalf("after target: got %d candidates, want 2", len(candidates))
	}

	varying := varyingAttributes(candidates)
	if len(varying) == 0 {
		t.Fatal("ambiguous set must report varying attributes")
	}

	// Bolt count is one of the differentiators; applying it converges.
	filter.BoltCount = intPtr(12)
	candidates = filterSpecs(PartCategoryGateValve, filter, catalog)
	if len(candidates) != 1 {
		t.Fatalf("after bolt count: got %d candidates, want 1", len(candidates))
	}
	if candidates[0].ID != 2 {
		t.Fatalf("converged to spec %d, want 2", candidates[0].ID)
	}
}

func TestAdapterSidesShareFullPool(t *testing.T) {
	catalog := fixtureCatalog()

	// An adapter side ignores pressure columns entirely; every geometry row
	// is in its pool regardless of which categories its pressures disqualify.
	candidates := filterSpecs(PartCategoryAdapter, SelectionFilter{}, catalog)
	if len(candidates) != len(catalog) {
		t.Fatalf("adapter pool has %d rows, want %d", len(candidates), len(catalog))
	}

	side1 := filterSpecs(PartCategoryAdapter, SelectionFilter{NominalSize: strPtr("2 1/16")}, catalog)
	side2 := filterSpecs(PartCategoryAdapter, SelectionFilter{NominalSize: strPtr("2 1/16")}, catalog)
	if len(side1) != 1 || len(side2) != 1 || side1[0].ID != side2[0].ID {
		t.Fatal("both sides must be able to resolve to the same record independently")
	}
}

// Every value offered for an attribute must, when applied, produce a
// non-empty candidate set.
func TestDependentOptionsAreAlwaysSatisfiable(t *testing.T) {
	catalog := fixtureCatalog()

	for _, category := range AllPartCategories() {
		filters := []SelectionFilter{{}}
		if category.RequiresTarget() {
			filters = nil
			for _, psi := range targetOptionsFromSpecs(category, catalog) {
				target := psi
				filters = append(filters, SelectionFilter{TargetPSI: &target})
			}
		}
		for _, filter := range filters {
			candidates := filterSpecs(category, filter, catalog)
			for _, attribute := range []FilterAttribute{FilterAttributeNominalSize, FilterAttributeBoltCount, FilterAttributeBoltSize} {
				for _, value := range dependentOptionValues(attribute, candidates) {
					narrowed := filter
					switch attribute {
					case FilterAttributeNominalSize:
						v := value
						narrowed.NominalSize = &v
					case FilterAttributeBoltCount:
						count, err := strconv.Atoi(value)
						if err != nil {
							t.Fatalf("bolt count option %q is not numeric", value)
						}
						narrowed.BoltCount = &count
					case FilterAttributeBoltSize:
						v := value
						narrowed.BoltSize = &v
					}
					result := filterSpecs(category, narrowed, catalog)
					if len(result) == 0 {
						t.Errorf("%s: offered %s=%s yields empty set under %+v", category, attribute, value, filter)
					}
				}
			}
		}
	}
}

func TestDependentBoltCountsSortNumerically(t *testing.T) {
	catalog := []*FlangeSpec{
		{ID: 1, NominalSize: "A", BoltCount: 12, BoltSize: "x"},
		{ID: 2, NominalSize: "B", BoltCount: 8, BoltSize: "y"},
		{ID: 3, NominalSize: "C", BoltCount: 16, BoltSize: "z"},
	}
	values := dependentOptionValues(FilterAttributeBoltCount, catalog)
	want := []string{"8", "12", "16"}
	if len(values) != len(want) {
		t.Fatalf("got %v, want %v", values, want)
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("got %v, want %v (numeric order, not lexicographic)", values, want)
		}
	}
}

func TestDependentOptionsDeriveFromLiveSetOnly(t *testing.T) {
	catalog := fixtureCatalog()
	filtered := filterSpecs(PartCategoryGateValve, SelectionFilter{TargetPSI: intPtr(5000)}, catalog)
	values := dependentOptionValues(FilterAttributeNominalSize, filtered)
	if len(values) != 1 || values[0] != "2 1/16" {
		t.Fatalf("options must come from the filtered set, got %v", values)
	}
}

func TestVaryingAttributesNamesOnlyDifferentiators(t *testing.T) {
	specs := []*FlangeSpec{
		{ID: 1, NominalSize: "3 1/8", BoltCount: 12, BoltSize: "7/8"},
		{ID: 2, NominalSize: "4 1/16", BoltCount: 16, BoltSize: "7/8"},
	}
	varying := varyingAttributes(specs)
	if len(varying) != 2 {
		t.Fatalf("got %v, want nominal_size and bolt_count only", varying)
	}
	for _, attribute := range varying {
		if attribute == string(FilterAttributeBoltSize) {
			t.Fatal("bolt_size does not vary and must not be offered")
		}
	}
}

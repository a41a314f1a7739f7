package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// PartCategory is the closed set of stack part kinds.
//
// Three behavior classes exist:
//   - attribute-driven: selection is narrowed first by a required working
//     pressure read from one nullable PSI column on FlangeSpec, and the
//     finalized member carries that chosen value;
//   - geometry-driven: narrowed by size/bolt attributes only, never carries a
//     working pressure;
//   - composite: one side of a two-sided adapter unit; geometry-driven in its
//     own resolution, paired to its sibling via a shared group id.
type PartCategory string

const (
	PartCategoryGateValve   PartCategory = "GateValve"
	PartCategoryPlugValve   PartCategory = "PlugValve"
	PartCategoryCheckValve  PartCategory = "CheckValve"
	PartCategoryChoke       PartCategory = "Choke"
	PartCategoryBlindFlange PartCategory = "BlindFlange"
	PartCategorySpool       PartCategory = "Spool"
	PartCategoryAdapter     PartCategory = "Adapter"
)

// categoryBehavior is the single dispatch table both the option-listing and
// candidate-filtering paths consult, so the two can never drift apart.
type categoryBehavior struct {
	Label          string
	RequiresTarget bool
	Composite      bool

	// targetPSI reads the category's working-pressure column.
	// Nil for geometry-driven and composite categories.
	targetPSI func(*FlangeSpec) *int
}

var categoryBehaviors = map[PartCategory]categoryBehavior{
	PartCategoryGateValve: {
		Label:          "Gate Valve",
		RequiresTarget: true,
		targetPSI:      func(s *FlangeSpec) *int { return s.GateValvePSI },
	},
	PartCategoryPlugValve: {
		Label:          "Plug Valve",
		RequiresTarget: true,
		targetPSI:      func(s *FlangeSpec) *int { return s.PlugValvePSI },
	},
	PartCategoryCheckValve: {
		Label:          "Check Valve",
		RequiresTarget: true,
		targetPSI:      func(s *FlangeSpec) *int { return s.CheckValvePSI },
	},
	PartCategoryChoke: {
		Label:          "Choke",
		RequiresTarget: true,
		targetPSI:      func(s *FlangeSpec) *int { return s.ChokePSI },
	},
	PartCategoryBlindFlange: {
		Label: "Blind Flange",
	},
	PartCategorySpool: {
		Label: "Spool",
	},
	PartCategoryAdapter: {
		Label:     "Adapter",
		Composite: true,
	},
}

// AllPartCategories returns the enumeration in display order.
func AllPartCategories() []PartCategory {
	return []PartCategory{
		PartCategoryGateValve,
		PartCategoryPlugValve,
		PartCategoryCheckValve,
		PartCategoryChoke,
		PartCategoryBlindFlange,
		PartCategorySpool,
		PartCategoryAdapter,
	}
}

func (c PartCategory) Valid() bool {
	_, ok := categoryBehaviors[c]
	return ok
}

// Label is the human-readable name used on report lines.
func (c PartCategory) Label() string {
	if b, ok := categoryBehaviors[c]; ok {
		return b.Label
	}
	return string(c)
}

// RequiresTarget reports whether the category is attribute-driven.
func (c PartCategory) RequiresTarget() bool {
	if b, ok := categoryBehaviors[c]; ok {
		return b.RequiresTarget
	}
	return false
}

// IsComposite reports whether the category is one side of a two-sided unit.
func (c PartCategory) IsComposite() bool {
	if b, ok := categoryBehaviors[c]; ok {
		return b.Composite
	}
	return false
}

func (c PartCategory) Value() (driver.Value, error) {
	return string(c), nil
}

func (c *PartCategory) Scan(value interface{}) error {
	switch v := value.(type) {
	case string:
		*c = PartCategory(v)
	case []byte:
		*c = PartCategory(v)
	default:
		return fmt.Errorf("cannot scan %T into PartCategory", value)
	}
	return nil
}

// FilterAttribute names the geometric attributes a caller may narrow by after
// (or instead of) the working-pressure target.
type FilterAttribute string

const (
	FilterAttributeNominalSize FilterAttribute = "nominal_size"
	FilterAttributeBoltCount   FilterAttribute = "bolt_count"
	FilterAttributeBoltSize    FilterAttribute = "bolt_size"
)

func (a FilterAttribute) Valid() bool {
	switch a {
	case FilterAttributeNominalSize, FilterAttributeBoltCount, FilterAttributeBoltSize:
		return true
	}
	return false
}

var errInvalidFilterAttribute = errors.New("invalid filter attribute")

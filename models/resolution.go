package models

import (
	"context"
	"sort"
	"strconv"

	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/utils"
)

// SelectionFilter is the accumulating filter bag for one part selection.
// Absent fields do not constrain. TargetPSI is only meaningful for
// attribute-driven categories.
type SelectionFilter struct {
	TargetPSI   *int    `json:"target_psi"`
	NominalSize *string `json:"nominal_size"`
	BoltCount   *int    `json:"bolt_count"`
	BoltSize    *string `json:"bolt_size"`
}

// ListTargetOptions returns the working pressures a caller may pick first for
// an attribute-driven category: distinct, strictly positive, ascending,
// computed over the FULL catalog (it is the first question asked, before any
// filter exists). Geometry-driven, composite and unknown categories get an
// empty list.
func ListTargetOptions(ctx context.Context, category PartCategory) ([]int, error) {
	specs, err := ListFlangeSpecs(ctx)
	if err != nil {
		return nil, err
	}
	return targetOptionsFromSpecs(category, specs), nil
}

func targetOptionsFromSpecs(category PartCategory, specs []*FlangeSpec) []int {
	behavior, ok := categoryBehaviors[category]
	if !ok || !behavior.RequiresTarget {
		return []int{}
	}

	seen := make(map[int]bool)
	options := make([]int, 0)
	for _, spec := range specs {
		psi := behavior.targetPSI(spec)
		// Zero and negative values are not-applicable sentinels from the
		// source sheets; never offer them.
		if psi == nil || *psi <= 0 {
			continue
		}
		if !seen[*psi] {
			seen[*psi] = true
			options = append(options, *psi)
		}
	}
	sort.Ints(options)
	return options
}

// FilterCandidates computes the candidate set consistent with all supplied
// filters. An empty result is a valid outcome, not an error.
func FilterCandidates(ctx context.Context, category PartCategory, filter SelectionFilter) ([]*FlangeSpec, error) {
	specs, err := ListFlangeSpecs(ctx)
	if err != nil {
		return nil, err
	}
	return filterSpecs(category, filter, specs), nil
}

// filterSpecs narrows the catalog: the category constraint first, then strict
// equality on each present geometric filter, sorted by flange size label for
// deterministic presentation.
func filterSpecs(category PartCategory, filter SelectionFilter, specs []*FlangeSpec) []*FlangeSpec {
	behavior, ok := categoryBehaviors[category]
	if !ok {
		// Unrecognized category: fail closed.
		return []*FlangeSpec{}
	}

	candidates := make([]*FlangeSpec, 0, len(specs))
	for _, spec := range specs {
		if behavior.RequiresTarget {
			psi := behavior.targetPSI(spec)
			if filter.TargetPSI != nil {
				if psi == nil || *psi != *filter.TargetPSI {
					continue
				}
			} else if psi == nil {
				// No target chosen yet: the category must at least be
				// possible for the row.
				continue
			}
		}
		// Geometry-driven and composite categories have no per-category
		// eligibility predicate; every row passes the category stage.

		if filter.NominalSize != nil && spec.NominalSize != *filter.NominalSize {
			continue
		}
		if filter.BoltCount != nil && spec.BoltCount != *filter.BoltCount {
			continue
		}
		if filter.BoltSize != nil && spec.BoltSize != *filter.BoltSize {
			continue
		}
		candidates = append(candidates, spec)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FlangeSize != candidates[j].FlangeSize {
			return candidates[i].FlangeSize < candidates[j].FlangeSize
		}
		if candidates[i].BoltCount != candidates[j].BoltCount {
			return candidates[i].BoltCount < candidates[j].BoltCount
		}
		return candidates[i].BoltSize < candidates[j].BoltSize
	})
	return candidates
}

// ListDependentOptionValues projects one attribute over the CURRENT candidate
// set, never the unfiltered catalog, deduplicated and sorted. Offering only
// these values guarantees a caller can never combine two previously-offered
// options into an empty result, as long as options are re-derived after each
// choice.
func ListDependentOptionValues(ctx context.Context, category PartCategory, filter SelectionFilter, attribute FilterAttribute) ([]string, error) {
	if !attribute.Valid() {
		return nil, errInvalidFilterAttribute
	}
	candidates, err := FilterCandidates(ctx, category, filter)
	if err != nil {
		return nil, err
	}
	return dependentOptionValues(attribute, candidates), nil
}

func dependentOptionValues(attribute FilterAttribute, candidates []*FlangeSpec) []string {
	switch attribute {
	case FilterAttributeBoltCount:
		counts := make([]int, 0, len(candidates))
		for _, spec := range candidates {
			counts = append(counts, spec.BoltCount)
		}
		counts = utils.UniqueSlice(counts)
		sort.Ints(counts)
		values := make([]string, 0, len(counts))
		for _, c := range counts {
			values = append(values, strconv.Itoa(c))
		}
		return values
	case FilterAttributeNominalSize, FilterAttributeBoltSize:
		values := make([]string, 0, len(candidates))
		for _, spec := range candidates {
			if attribute == FilterAttributeNominalSize {
				values = append(values, spec.NominalSize)
			} else {
				values = append(values, spec.BoltSize)
			}
		}
		values = utils.UniqueSlice(values)
		sort.Strings(values)
		return values
	}
	return []string{}
}

// varyingAttributes lists the geometric attributes that still take more than
// one distinct value among the candidates, the attributes worth offering as
// the next filter.
func varyingAttributes(candidates []*FlangeSpec) []string {
	nominalSizes := make(map[string]bool)
	boltCounts := make(map[int]bool)
	boltSizes := make(map[string]bool)
	for _, spec := range candidates {
		nominalSizes[spec.NominalSize] = true
		boltCounts[spec.BoltCount] = true
		boltSizes[spec.BoltSize] = true
	}

	var varying []string
	if len(nominalSizes) > 1 {
		varying = append(varying, string(FilterAttributeNominalSize))
	}
	if len(boltCounts) > 1 {
		varying = append(varying, string(FilterAttributeBoltCount))
	}
	if len(boltSizes) > 1 {
		varying = append(varying, string(FilterAttributeBoltSize))
	}
	return varying
}

// ResolveSelection narrows the catalog to the single row the filters intend.
// Zero candidates → ErrorNoMatch; more than one → AmbiguousSelectionError
// carrying the attributes that still vary; unknown category →
// ErrorUnknownCategory.
func ResolveSelection(ctx context.Context, category PartCategory, filter SelectionFilter) (*FlangeSpec, error) {
	if !category.Valid() {
		return nil, utils.ErrorUnknownCategory
	}

	candidates, err := FilterCandidates(ctx, category, filter)
	if err != nil {
		return nil, err
	}

	switch len(candidates) {
	case 0:
		return nil, utils.ErrorNoMatch
	case 1:
		resolved := candidates[0]
		logWrenchAdvisory(ctx, resolved)
		return resolved, nil
	default:
		return nil, &utils.AmbiguousSelectionError{
			CandidateCount:    len(candidates),
			VaryingAttributes: varyingAttributes(candidates),
		}
	}
}

// logWrenchAdvisory reports a wrench/truck-PSI cross-check disagreement on the
// resolved row. Advisory only; the row is kept.
func logWrenchAdvisory(ctx context.Context, spec *FlangeSpec) {
	refs, err := ListWrenchRefs(ctx)
	if err != nil {
		config.LogError(config.GetLogger(), "resolution.go", "logWrenchAdvisory", "list wrench refs", spec.ID, err)
		return
	}
	if m := crossCheckWrench(spec, wrenchExpectationMap(refs)); m != nil {
		config.LogDataQualityWarning(config.GetLogger(), "resolution.go", "logWrenchAdvisory",
			"wrench cross-check", m, "resolved flange spec truck PSI disagrees with wrench reference")
	}
}

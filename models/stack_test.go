package models

import (
	"errors"
	"testing"

	"github.com/wellsitefocus/rigup_backend/utils"
)

func TestReorderAcceptsExactPermutation(t *testing.T) {
	if err := validateReorderSequence([]int{1, 2, 3}, []int{3, 1, 2}); err != nil {
		t.Fatalf("valid permutation rejected: %v", err)
	}
}

func TestReorderRejectsOmission(t *testing.T) {
	err := validateReorderSequence([]int{1, 2}, []int{1})
	if !errors.Is(err, utils.ErrorPreconditionViolation) {
		t.Fatalf("got %v, want precondition violation", err)
	}
}

func TestReorderRejectsForeignMember(t *testing.T) {
	err := validateReorderSequence([]int{1, 2}, []int{1, 99})
	if !errors.Is(err, utils.ErrorPreconditionViolation) {
		t.Fatalf("got %v, want precondition violation", err)
	}
}

func TestReorderRejectsDuplicate(t *testing.T) {
	err := validateReorderSequence([]int{1, 2}, []int{1, 1})
	if !errors.Is(err, utils.ErrorPreconditionViolation) {
		t.Fatalf("got %v, want precondition violation", err)
	}
}

func TestReorderRejectsAddition(t *testing.T) {
	err := validateReorderSequence([]int{1, 2}, []int{2, 1, 3})
	if !errors.Is(err, utils.ErrorPreconditionViolation) {
		t.Fatalf("got %v, want precondition violation", err)
	}
}

func TestReorderEmptyStack(t *testing.T) {
	if err := validateReorderSequence(nil, nil); err != nil {
		t.Fatalf("empty permutation of empty stack rejected: %v", err)
	}
}

func TestMemberTargetInvariant(t *testing.T) {
	groupId := "g"
	cases := []struct {
		name   string
		member StackMember
		ok     bool
	}{
		{"attribute-driven with target", StackMember{Category: PartCategoryGateValve, TargetPSI: intPtr(5000)}, true},
		{"attribute-driven missing target", StackMember{Category: PartCategoryGateValve}, false},
		{"geometry with stray target", StackMember{Category: PartCategorySpool, TargetPSI: intPtr(5000)}, false},
		{"geometry clean", StackMember{Category: PartCategoryBlindFlange}, true},
		{"composite with group", StackMember{Category: PartCategoryAdapter, GroupId: &groupId}, true},
		{"composite missing group", StackMember{Category: PartCategoryAdapter}, false},
		{"non-composite with group", StackMember{Category: PartCategorySpool, GroupId: &groupId}, false},
	}
	for _, tc := range cases {
		err := memberTargetInvariant(&tc.member)
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected an invariant violation", tc.name)
		}
	}
}

package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/utils"
	"gorm.io/gorm"
)

// Stack is one ordered rig-up of resolved parts.
type Stack struct {
	ID        int           `gorm:"primary_key" json:"id"`
	Title     string        `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
	Members   []StackMember `gorm:"foreignKey:StackId" json:"members"`
}

// StackMember is one finalized part selection belonging to one stack.
//
// Invariants:
//   - TargetPSI non-null ⇔ Category is attribute-driven;
//   - GroupId non-null ⇔ Category is composite, and exactly two members share
//     any given group id;
//   - every member references exactly one FlangeSpec row.
type StackMember struct {
	ID           int          `gorm:"primary_key" json:"id"`
	StackId      int          `gorm:"index;not null" json:"stack_id"`
	Category     PartCategory `gorm:"size:50;not null" json:"category"`
	GroupId      *string      `gorm:"size:36;index" json:"group_id"`
	TargetPSI    *int         `json:"target_psi"`
	FlangeSpecId int          `gorm:"not null" json:"flange_spec_id"`
	FlangeSpec   *FlangeSpec  `gorm:"foreignKey:FlangeSpecId" json:"flange_spec"`
	Position     int          `gorm:"not null" json:"position"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

type NewStack struct {
	Title string `json:"title" binding:"required"`
}

func CreateStack(ctx context.Context, input *NewStack) (*Stack, error) {
	db := config.GetDB()
	stack := Stack{
		Title: input.Title,
	}
	if err := db.WithContext(ctx).Create(&stack).Error; err != nil {
		return nil, err
	}
	return &stack, nil
}

func UpdateStack(ctx context.Context, id int, input *NewStack) (*Stack, error) {
	db := config.GetDB()
	stack, err := utils.FetchModel[Stack](ctx, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(stack).Updates(map[string]interface{}{
		"Title": input.Title,
	}).Error; err != nil {
		return nil, err
	}
	return stack, nil
}

// DeleteStack removes the stack and all of its members in one transaction.
func DeleteStack(ctx context.Context, id int) (*Stack, error) {
	db := config.GetDB()
	stack, err := utils.FetchModel[Stack](ctx, id)
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("stack_id = ?", id).Delete(&StackMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(stack).Error
	})
	if err != nil {
		return nil, err
	}
	return stack, nil
}

func ListStacks(ctx context.Context) ([]*Stack, error) {
	return utils.FetchAllModels[Stack](ctx)
}

// GetStack reads the stack with its members sorted by position ascending and
// their FlangeSpec rows attached. A member whose spec row is gone is a
// data-integrity fault and is surfaced, never silently dropped.
func GetStack(ctx context.Context, id int) (*Stack, error) {
	db := config.GetDB()
	var stack Stack
	err := db.WithContext(ctx).
		Preload("Members", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC")
		}).
		Preload("Members.FlangeSpec").
		First(&stack, id).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}

	for i := range stack.Members {
		if stack.Members[i].FlangeSpec == nil {
			config.LogError(config.GetLogger(), "stack.go", "GetStack", "member references missing flange spec",
				stack.Members[i].ID, utils.ErrorDataIntegrity)
			return nil, fmt.Errorf("member %d: %w", stack.Members[i].ID, utils.ErrorDataIntegrity)
		}
	}
	return &stack, nil
}

// bestEffortStackLock narrows the interleaving window for concurrent writers
// on the same stack. Per-stack serialization remains the caller's contract;
// when redis is not ready the mutation proceeds unlocked, as readiness gating
// normally prevents that state from being reachable.
func bestEffortStackLock(ctx context.Context, stackId int, funcName string) func() {
	release, err := utils.StackLock(ctx, stackId, "stack.go", funcName)
	if err != nil {
		return func() {}
	}
	return release
}

// nextPosition returns the append position for a stack inside tx:
// max position + 1, or 0 for an empty stack.
func nextPosition(tx *gorm.DB, stackId int) (int, error) {
	var position int
	err := tx.Model(&StackMember{}).
		Where("stack_id = ?", stackId).
		Select("COALESCE(MAX(position) + 1, 0)").
		Scan(&position).Error
	return position, err
}

// AddPartToStack resolves a non-composite selection and appends it at the end
// of the stack in one transaction. Attribute-driven categories must carry a
// chosen target; composite parts must go through the adapter selector.
func AddPartToStack(ctx context.Context, stackId int, category PartCategory, filter SelectionFilter) (*StackMember, error) {
	if !category.Valid() {
		return nil, utils.ErrorUnknownCategory
	}
	if category.IsComposite() {
		return nil, fmt.Errorf("%w: adapter parts are appended from a completed adapter selector", utils.ErrorPreconditionViolation)
	}
	if category.RequiresTarget() && filter.TargetPSI == nil {
		return nil, fmt.Errorf("%w: %s requires a working pressure target", utils.ErrorPreconditionViolation, category.Label())
	}
	if err := utils.ValidateResourceId[Stack](ctx, stackId); err != nil {
		return nil, err
	}

	resolved, err := ResolveSelection(ctx, category, filter)
	if err != nil {
		return nil, err
	}

	release := bestEffortStackLock(ctx, stackId, "AddPartToStack")
	defer release()

	member := StackMember{
		StackId:      stackId,
		Category:     category,
		FlangeSpecId: resolved.ID,
		FlangeSpec:   resolved,
	}
	if category.RequiresTarget() {
		member.TargetPSI = filter.TargetPSI
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := nextPosition(tx, stackId)
		if err != nil {
			return err
		}
		member.Position = position
		return tx.Omit("FlangeSpec").Create(&member).Error
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// RemoveFromStack deletes one member. Positions of the remaining members are
// left untouched (readers sort by position, so gaps are invisible) unless the
// dense-positions flag is on, in which case renumbering happens atomically
// with the delete. Removing one side of an adapter removes its paired side in
// the same transaction so no group is ever left half-populated.
func RemoveFromStack(ctx context.Context, stackId int, memberId int) error {
	release := bestEffortStackLock(ctx, stackId, "RemoveFromStack")
	defer release()

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member StackMember
		if err := tx.Where("stack_id = ?", stackId).First(&member, memberId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		if member.GroupId != nil {
			if err := tx.Where("stack_id = ? AND group_id = ?", stackId, *member.GroupId).
				Delete(&StackMember{}).Error; err != nil {
				return err
			}
		} else {
			if err := tx.Delete(&member).Error; err != nil {
				return err
			}
		}

		if config.DensePositions() {
			return renumberPositions(tx, stackId)
		}
		return nil
	})
}

func renumberPositions(tx *gorm.DB, stackId int) error {
	var members []StackMember
	if err := tx.Where("stack_id = ?", stackId).Order("position ASC").Find(&members).Error; err != nil {
		return err
	}
	for idx, member := range members {
		if member.Position == idx {
			continue
		}
		if err := tx.Model(&StackMember{}).Where("id = ?", member.ID).
			Update("position", idx).Error; err != nil {
			return err
		}
	}
	return nil
}

// validateReorderSequence checks that the proposed ordering is an exact
// permutation of the current member set: no additions, no omissions, no
// duplicates.
func validateReorderSequence(current []int, proposed []int) error {
	if len(proposed) != len(current) {
		return fmt.Errorf("%w: reorder must list all %d members, got %d", utils.ErrorPreconditionViolation, len(current), len(proposed))
	}
	memberSet := make(map[int]bool, len(current))
	for _, id := range current {
		memberSet[id] = true
	}
	seen := make(map[int]bool, len(proposed))
	for _, id := range proposed {
		if !memberSet[id] {
			return fmt.Errorf("%w: member %d does not belong to this stack", utils.ErrorPreconditionViolation, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: member %d listed more than once", utils.ErrorPreconditionViolation, id)
		}
		seen[id] = true
	}
	return nil
}

// ReorderStack atomically replaces the whole position assignment with the
// 0-based index of each member in the supplied sequence. A non-permutation
// input is rejected before any mutation.
func ReorderStack(ctx context.Context, stackId int, orderedIds []int) error {
	if err := utils.ValidateResourceId[Stack](ctx, stackId); err != nil {
		return err
	}

	release := bestEffortStackLock(ctx, stackId, "ReorderStack")
	defer release()

	db := config.GetDB()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentIds []int
		if err := tx.Model(&StackMember{}).Where("stack_id = ?", stackId).
			Pluck("id", &currentIds).Error; err != nil {
			return err
		}
		if err := validateReorderSequence(currentIds, orderedIds); err != nil {
			return err
		}
		for idx, id := range orderedIds {
			if err := tx.Model(&StackMember{}).Where("id = ? AND stack_id = ?", id, stackId).
				Update("position", idx).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// memberTargetInvariant reports whether a member satisfies the target/category
// coupling. Kept separate so admin tooling can verify stored data.
func memberTargetInvariant(member *StackMember) error {
	hasTarget := member.TargetPSI != nil
	if hasTarget != member.Category.RequiresTarget() {
		return errors.New("target value presence does not match category behavior")
	}
	hasGroup := member.GroupId != nil
	if hasGroup != member.Category.IsComposite() {
		return errors.New("group id presence does not match category behavior")
	}
	return nil
}

package models

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wellsitefocus/rigup_backend/config"
	"github.com/wellsitefocus/rigup_backend/utils"
	"gorm.io/gorm"
)

type AdapterSelectorState string

const (
	AdapterAwaitingSide1 AdapterSelectorState = "AWAITING_SIDE_1"
	AdapterAwaitingSide2 AdapterSelectorState = "AWAITING_SIDE_2"
	AdapterComplete      AdapterSelectorState = "COMPLETE"
)

// AdapterSelector tracks an in-progress two-sided adapter selection. Each side
// resolves against the full adapter pool independently; the group id minted at
// side-1 convergence later ties both stack members together.
type AdapterSelector struct {
	ID          string               `json:"id"`
	State       AdapterSelectorState `json:"state"`
	GroupId     string               `json:"group_id"`
	Side1SpecId int                  `json:"side_1_spec_id"`
	Side2SpecId int                  `json:"side_2_spec_id"`
	CreatedAt   time.Time            `json:"created_at"`
}

type adapterStore interface {
	Get(ctx context.Context, id string) (*AdapterSelector, error)
	Save(ctx context.Context, selector *AdapterSelector) error
	Delete(ctx context.Context, id string)
}

type redisAdapterStore struct{}

func adapterKey(id string) string {
	return "AdapterSelector:" + id
}

func (redisAdapterStore) Get(ctx context.Context, id string) (*AdapterSelector, error) {
	var selector AdapterSelector
	found, err := config.GetRedisObject(adapterKey(id), &selector)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, utils.ErrorRecordNotFound
	}
	return &selector, nil
}

func (redisAdapterStore) Save(ctx context.Context, selector *AdapterSelector) error {
	return config.SetRedisObject(adapterKey(selector.ID), selector, utils.GetCacheLifespan())
}

func (redisAdapterStore) Delete(ctx context.Context, id string) {
	config.RemoveRedisKey(adapterKey(id))
}

// memoryAdapterStore backs selector state when redis is absent and in tests.
type memoryAdapterStore struct {
	selectors map[string]*AdapterSelector
}

func newMemoryAdapterStore() *memoryAdapterStore {
	return &memoryAdapterStore{selectors: map[string]*AdapterSelector{}}
}

func (s *memoryAdapterStore) Get(ctx context.Context, id string) (*AdapterSelector, error) {
	selector, ok := s.selectors[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	copied := *selector
	return &copied, nil
}

func (s *memoryAdapterStore) Save(ctx context.Context, selector *AdapterSelector) error {
	copied := *selector
	s.selectors[selector.ID] = &copied
	return nil
}

func (s *memoryAdapterStore) Delete(ctx context.Context, id string) {
	delete(s.selectors, id)
}

var fallbackAdapterStore = newMemoryAdapterStore()

func activeAdapterStore() adapterStore {
	if config.GetRedisDB() == nil {
		return fallbackAdapterStore
	}
	return redisAdapterStore{}
}

// StartAdapterSide1 resolves side 1 of a new adapter against the adapter pool
// and opens a selector awaiting side 2. The filter must converge to exactly
// one record; ambiguity and no-match propagate unchanged so the caller can
// keep narrowing. Adapters are geometry-driven, so the filter carries no
// working pressure target.
func StartAdapterSide1(ctx context.Context, filter SelectionFilter) (*AdapterSelector, error) {
	resolved, err := ResolveSelection(ctx, PartCategoryAdapter, filter)
	if err != nil {
		return nil, err
	}
	selector := AdapterSelector{
		ID:          uuid.NewString(),
		State:       AdapterAwaitingSide2,
		GroupId:     uuid.NewString(),
		Side1SpecId: resolved.ID,
		CreatedAt:   time.Now(),
	}
	if err := activeAdapterStore().Save(ctx, &selector); err != nil {
		return nil, err
	}
	return &selector, nil
}

// CompleteAdapterSide2 resolves side 2 against the full adapter pool. Side 2
// is not constrained by side 1 in any way; the same spec record may serve
// both sides.
func CompleteAdapterSide2(ctx context.Context, selectorId string, filter SelectionFilter) (*AdapterSelector, error) {
	store := activeAdapterStore()
	selector, err := store.Get(ctx, selectorId)
	if err != nil {
		return nil, err
	}
	if selector.State != AdapterAwaitingSide2 {
		return nil, fmt.Errorf("%w: selector %s is %s, expected %s", utils.ErrorPreconditionViolation,
			selectorId, selector.State, AdapterAwaitingSide2)
	}
	resolved, err := ResolveSelection(ctx, PartCategoryAdapter, filter)
	if err != nil {
		return nil, err
	}
	selector.Side2SpecId = resolved.ID
	selector.State = AdapterComplete
	if err := store.Save(ctx, selector); err != nil {
		return nil, err
	}
	return selector, nil
}

// AppendAdapterToStack turns a completed selector into two paired stack
// members at the tail of the stack, created in one transaction so the
// two-members-per-group invariant can never be observed half-done. The
// selector is consumed on success.
func AppendAdapterToStack(ctx context.Context, stackId int, selectorId string) ([]*StackMember, error) {
	store := activeAdapterStore()
	selector, err := store.Get(ctx, selectorId)
	if err != nil {
		return nil, err
	}
	if selector.State != AdapterComplete {
		return nil, fmt.Errorf("%w: selector %s is %s, both sides must be resolved before appending",
			utils.ErrorPreconditionViolation, selectorId, selector.State)
	}
	if err := utils.ValidateResourceId[Stack](ctx, stackId); err != nil {
		return nil, err
	}

	release := bestEffortStackLock(ctx, stackId, "AppendAdapterToStack")
	defer release()

	groupId := selector.GroupId
	side1 := StackMember{
		StackId:      stackId,
		Category:     PartCategoryAdapter,
		GroupId:      &groupId,
		FlangeSpecId: selector.Side1SpecId,
	}
	side2 := StackMember{
		StackId:      stackId,
		Category:     PartCategoryAdapter,
		GroupId:      &groupId,
		FlangeSpecId: selector.Side2SpecId,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := nextPosition(tx, stackId)
		if err != nil {
			return err
		}
		side1.Position = position
		if err := tx.Create(&side1).Error; err != nil {
			return err
		}
		side2.Position = position + 1
		return tx.Create(&side2).Error
	})
	if err != nil {
		return nil, err
	}

	store.Delete(ctx, selectorId)
	return []*StackMember{&side1, &side2}, nil
}

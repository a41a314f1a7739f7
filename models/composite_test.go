package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wellsitefocus/rigup_backend/utils"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newMemoryAdapterStore()

	selector := &AdapterSelector{
		ID:          "sel-1",
		State:       AdapterAwaitingSide2,
		GroupId:     "grp-1",
		Side1SpecId: 10,
		CreatedAt:   time.Now(),
	}
	if err := store.Save(ctx, selector); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Get(ctx, "sel-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.GroupId != "grp-1" || loaded.Side1SpecId != 10 {
		t.Fatalf("loaded %+v", loaded)
	}

	// Mutating the loaded copy must not mutate the stored one.
	loaded.State = AdapterComplete
	again, err := store.Get(ctx, "sel-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.State != AdapterAwaitingSide2 {
		t.Fatal("store handed out a shared pointer")
	}

	store.Delete(ctx, "sel-1")
	if _, err := store.Get(ctx, "sel-1"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("after delete: got %v, want record not found", err)
	}
}

func TestCompleteSide2RejectsNonAwaitingState(t *testing.T) {
	ctx := context.Background()

	selector := &AdapterSelector{
		ID:          "sel-complete",
		State:       AdapterComplete,
		GroupId:     "grp",
		Side1SpecId: 1,
		Side2SpecId: 2,
	}
	if err := fallbackAdapterStore.Save(ctx, selector); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Cleanup(func() { fallbackAdapterStore.Delete(ctx, selector.ID) })

	_, err := CompleteAdapterSide2(ctx, selector.ID, SelectionFilter{})
	if !errors.Is(err, utils.ErrorPreconditionViolation) {
		t.Fatalf("got %v, want precondition violation", err)
	}
}

func TestAppendRejectsIncompleteSelector(t *testing.T) {
	ctx := context.Background()

	selector := &AdapterSelector{
		ID:          "sel-awaiting",
		State:       AdapterAwaitingSide2,
		GroupId:     "grp",
		Side1SpecId: 1,
	}
	if err := fallbackAdapterStore.Save(ctx, selector); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Cleanup(func() { fallbackAdapterStore.Delete(ctx, selector.ID) })

	_, err := AppendAdapterToStack(ctx, 1, selector.ID)
	if !errors.Is(err, utils.ErrorPreconditionViolation) {
		t.Fatalf("got %v, want precondition violation", err)
	}

	// The selector itself must be untouched by the failed append.
	unchanged, err := fallbackAdapterStore.Get(ctx, selector.ID)
	if err != nil {
		t.Fatalf("Get after failed append: %v", err)
	}
	if unchanged.State != AdapterAwaitingSide2 {
		t.Fatalf("state changed to %s", unchanged.State)
	}
}

func TestAppendUnknownSelector(t *testing.T) {
	_, err := AppendAdapterToStack(context.Background(), 1, "no-such-selector")
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("got %v, want record not found", err)
	}
}

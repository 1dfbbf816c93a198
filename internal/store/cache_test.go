package store

import (
	"context"
	"sync/atomic"
	"testing"
)

// countingStore tracks how many reads hit the inner store.
type countingStore struct {
	Store

	list  *AllowList
	reads atomic.Int64
}

func (c *countingStore) ReadAllowList(context.Context) (*AllowList, error) {
	c.reads.Add(1)
	return c.list.Clone(), nil
}

func (c *countingStore) WriteAllowList(_ context.Context, doc *AllowList) error {
	c.list = doc.Clone()
	return nil
}

func (c *countingStore) MutateAllowList(_ context.Context, fn func(*AllowList) error) (*AllowList, error) {
	list := c.list.Clone()
	if err := fn(list); err != nil {
		return nil, err
	}
	c.list = list
	return list.Clone(), nil
}

func TestCachedStoreReadThrough(t *testing.T) {
	inner := &countingStore{list: DefaultAllowList()}
	cached := NewCachedStore(inner)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cached.ReadAllowList(ctx); err != nil {
			t.Fatalf("ReadAllowList: %v", err)
		}
	}
	if got := inner.reads.Load(); got != 1 {
		t.Errorf("inner reads = %d, want 1", got)
	}
}

func TestCachedStoreInvalidatesOnWrite(t *testing.T) {
	inner := &countingStore{list: DefaultAllowList()}
	cached := NewCachedStore(inner)
	ctx := context.Background()

	if _, err := cached.ReadAllowList(ctx); err != nil {
		t.Fatal(err)
	}

	next := DefaultAllowList()
	next.Enabled = false
	if err := cached.WriteAllowList(ctx, next); err != nil {
		t.Fatal(err)
	}

	got, err := cached.ReadAllowList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Enabled {
		t.Error("read after write should see the new document, not the cached one")
	}
}

func TestCachedStoreMutationUpdatesCache(t *testing.T) {
	inner := &countingStore{list: DefaultAllowList()}
	cached := NewCachedStore(inner)
	ctx := context.Background()

	if _, err := cached.MutateAllowList(ctx, func(list *AllowList) error {
		list.Users = append(list.Users, UserEntry{ID: 9, Name: "Bob"})
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	readsBefore := inner.reads.Load()
	got, err := cached.ReadAllowList(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.HasUser(9) {
		t.Error("mutation result should be visible")
	}
	if inner.reads.Load() != readsBefore {
		t.Error("the mutation result should have primed the cache")
	}
}

func TestCachedStoreReturnsClones(t *testing.T) {
	inner := &countingStore{list: DefaultAllowList()}
	cached := NewCachedStore(inner)
	ctx := context.Background()

	first, _ := cached.ReadAllowList(ctx)
	first.Enabled = false
	first.Users = append(first.Users, UserEntry{ID: 1})

	second, _ := cached.ReadAllowList(ctx)
	if !second.Enabled || len(second.Users) != 0 {
		t.Error("callers must not be able to mutate the cached document")
	}
}

package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/todo-service/domain/todo"
)

// stepClock advances by one second on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

type storeFactory func(t *testing.T, clock Clock) todo.Store

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// runStoreContract checks the behavior every backend shares.
func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("insert assigns id and timestamps", func(t *testing.T) {
		clock := newStepClock()
		store := newStore(t, clock.Now)

		created, err := store.Insert(ctx, &todo.Todo{Title: "Buy milk", Description: "2L"})
		require.NoError(t, err)

		assert.True(t, IsValidID(created.ID))
		assert.Equal(t, "Buy milk", created.Title)
		assert.Equal(t, "2L", created.Description)
		assert.False(t, created.Completed)
		assert.False(t, created.CreatedAt.IsZero())
		assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

		found, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
	})

	t.Run("find all orders newest first", func(t *testing.T) {
		clock := newStepClock()
		store := newStore(t, clock.Now)

		for _, title := range []string{"A", "B", "C"} {
			_, err := store.Insert(ctx, &todo.Todo{Title: title})
			require.NoError(t, err)
		}

		todos, err := store.FindAll(ctx, todo.NewestFirst)
		require.NoError(t, err)
		require.Len(t, todos, 3)
		assert.Equal(t, []string{"C", "B", "A"}, titles(todos))

		todos, err = store.FindAll(ctx, todo.OldestFirst)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, titles(todos))
	})

	t.Run("find all on empty store", func(t *testing.T) {
		store := newStore(t, nil)

		todos, err := store.FindAll(ctx, todo.NewestFirst)
		require.NoError(t, err)
		assert.Empty(t, todos)
	})

	t.Run("equal timestamps are ordered by id", func(t *testing.T) {
		store := newStore(t, fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

		first, err := store.Insert(ctx, &todo.Todo{Title: "first"})
		require.NoError(t, err)
		second, err := store.Insert(ctx, &todo.Todo{Title: "second"})
		require.NoError(t, err)
		require.Less(t, first.ID, second.ID)

		todos, err := store.FindAll(ctx, todo.NewestFirst)
		require.NoError(t, err)
		assert.Equal(t, []string{"second", "first"}, titles(todos))
	})

	t.Run("update applies only patched fields", func(t *testing.T) {
		clock := newStepClock()
		store := newStore(t, clock.Now)

		created, err := store.Insert(ctx, &todo.Todo{Title: "Write report", Description: "Q1"})
		require.NoError(t, err)

		updated, err := store.UpdateByID(ctx, created.ID, todo.Patch{Completed: boolPtr(true)})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Write report", updated.Title)
		assert.Equal(t, "Q1", updated.Description)
		assert.True(t, updated.Completed)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		updated, err = store.UpdateByID(ctx, created.ID, todo.Patch{Title: strPtr("Send report"), Description: strPtr("")})
		require.NoError(t, err)
		assert.Equal(t, "Send report", updated.Title)
		assert.Equal(t, "", updated.Description)
		assert.True(t, updated.Completed)
	})

	t.Run("empty patch refreshes updatedAt", func(t *testing.T) {
		clock := newStepClock()
		store := newStore(t, clock.Now)

		created, err := store.Insert(ctx, &todo.Todo{Title: "Stretch"})
		require.NoError(t, err)

		updated, err := store.UpdateByID(ctx, created.ID, todo.Patch{})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("updates within one clock tick still advance updatedAt", func(t *testing.T) {
		store := newStore(t, fixedClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

		created, err := store.Insert(ctx, &todo.Todo{Title: "Water plants"})
		require.NoError(t, err)

		prev := created.UpdatedAt
		for i := 0; i < 3; i++ {
			updated, err := store.UpdateByID(ctx, created.ID, todo.Patch{Completed: boolPtr(i%2 == 0)})
			require.NoError(t, err)
			assert.True(t, updated.UpdatedAt.After(prev), "update %d: %s not after %s", i, updated.UpdatedAt, prev)
			assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
			prev = updated.UpdatedAt
		}

		found, err := store.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, prev.Equal(found.UpdatedAt))
	})

	t.Run("patch values are stored literally", func(t *testing.T) {
		store := newStore(t, nil)

		created, err := store.Insert(ctx, &todo.Todo{Title: "Pay bill"})
		require.NoError(t, err)

		updated, err := store.UpdateByID(ctx, created.ID, todo.Patch{Title: strPtr("$title"), Description: strPtr("$$ROOT")})
		require.NoError(t, err)
		assert.Equal(t, "$title", updated.Title)
		assert.Equal(t, "$$ROOT", updated.Description)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		store := newStore(t, nil)
		missing := newID()

		_, err := store.FindByID(ctx, missing)
		assert.Equal(t, todo.FailureNotFound, todo.FailureKindOf(err))

		_, err = store.UpdateByID(ctx, missing, todo.Patch{Title: strPtr("x")})
		assert.Equal(t, todo.FailureNotFound, todo.FailureKindOf(err))

		_, err = store.DeleteByID(ctx, missing)
		assert.Equal(t, todo.FailureNotFound, todo.FailureKindOf(err))
	})

	t.Run("delete returns last state and is final", func(t *testing.T) {
		clock := newStepClock()
		store := newStore(t, clock.Now)

		created, err := store.Insert(ctx, &todo.Todo{Title: "Temp"})
		require.NoError(t, err)
		_, err = store.UpdateByID(ctx, created.ID, todo.Patch{Completed: boolPtr(true)})
		require.NoError(t, err)

		deleted, err := store.DeleteByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, deleted.ID)
		assert.True(t, deleted.Completed)

		_, err = store.DeleteByID(ctx, created.ID)
		assert.Equal(t, todo.FailureNotFound, todo.FailureKindOf(err))

		todos, err := store.FindAll(ctx, todo.NewestFirst)
		require.NoError(t, err)
		assert.Empty(t, todos)
	})
}

func titles(todos []*todo.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.Title)
	}
	return out
}

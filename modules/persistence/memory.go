package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/example/todo-service/domain/todo"
)

// MemoryStore provides in-memory todo storage.
type MemoryStore struct {
	todos map[string]*todo.Todo
	clock Clock
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(clock Clock) *MemoryStore {
	return &MemoryStore{
		todos: make(map[string]*todo.Todo),
		clock: clock,
	}
}

func (s *MemoryStore) Insert(_ context.Context, t *todo.Todo) (*todo.Todo, error) {
	now := s.clock.now()
	stored := *t
	stored.ID = newID()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	s.todos[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) FindAll(_ context.Context, order todo.SortOrder) ([]*todo.Todo, error) {
	s.mu.RLock()
	result := make([]*todo.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		cp := *t
		result = append(result, &cp)
	}
	s.mu.RUnlock()

	sortTodos(result, order)
	return result, nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*todo.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, found := s.todos[id]
	if !found {
		return nil, todo.NewStoreError(todo.FailureNotFound, "find todo", nil)
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) UpdateByID(_ context.Context, id string, patch todo.Patch) (*todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.todos[id]
	if !found {
		return nil, todo.NewStoreError(todo.FailureNotFound, "update todo", nil)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	t.UpdatedAt = nextUpdate(s.clock.now(), t.UpdatedAt)

	cp := *t
	return &cp, nil
}

func (s *MemoryStore) DeleteByID(_ context.Context, id string) (*todo.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, found := s.todos[id]
	if !found {
		return nil, todo.NewStoreError(todo.FailureNotFound, "delete todo", nil)
	}
	delete(s.todos, id)
	return t, nil
}

// Len returns the number of stored todos.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos)
}

// sortTodos orders by createdAt, then by id. ObjectID hex sorts in
// creation order, so the id tie-break matches the MongoDB sort.
func sortTodos(todos []*todo.Todo, order todo.SortOrder) {
	sort.SliceStable(todos, func(i, j int) bool {
		a, b := todos[i], todos[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if order == todo.OldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if order == todo.OldestFirst {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})
}

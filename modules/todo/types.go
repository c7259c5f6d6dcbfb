package todo

import (
	"context"

	domain "github.com/example/todo-service/domain/todo"
)

// ErrorPayload carries a *domain.Error across the service container.
type ErrorPayload struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	Transient bool   `json:"transient,omitempty"`
}

// CreateTodoRequest is the request for creating a todo.
type CreateTodoRequest struct {
	Todo domain.CreateInput `json:"todo"`
}

// ListTodosRequest is the request for listing todos.
type ListTodosRequest struct{}

// UpdateTodoRequest is the request for updating a todo.
type UpdateTodoRequest struct {
	ID   string             `json:"id"`
	Todo domain.UpdateInput `json:"todo"`
}

// DeleteTodoRequest is the request for deleting a todo.
type DeleteTodoRequest struct {
	ID string `json:"id"`
}

// TodoResponse is the response for single-todo operations. Exactly one of
// Todo and Error is set.
type TodoResponse struct {
	Todo  *domain.Todo  `json:"todo,omitempty"`
	Error *ErrorPayload `json:"error,omitempty"`
}

// ListTodosResponse is the response for listing todos.
type ListTodosResponse struct {
	Todos []*domain.Todo `json:"todos"`
	Count int            `json:"count"`
	Error *ErrorPayload  `json:"error,omitempty"`
}

// TodoPort defines the todo operations available to driving adapters such
// as the HTTP API. Failures are *domain.Error values.
type TodoPort interface {
	CreateTodo(ctx context.Context, in domain.CreateInput) (*domain.Todo, error)
	ListTodos(ctx context.Context) ([]*domain.Todo, error)
	UpdateTodo(ctx context.Context, id string, in domain.UpdateInput) (*domain.Todo, error)
	DeleteTodo(ctx context.Context, id string) (*domain.Todo, error)
}

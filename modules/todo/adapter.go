package todo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/todo-service/domain/todo"
)

// todoAdapter wraps ServiceContainer for type-safe cross-module calls.
type todoAdapter struct {
	container mono.ServiceContainer
}

// NewTodoAdapter creates a TodoPort over the todo module's services.
// container is the ServiceContainer received via SetDependencyServiceContainer.
func NewTodoAdapter(container mono.ServiceContainer) TodoPort {
	if container == nil {
		panic("todo adapter requires non-nil ServiceContainer")
	}
	return &todoAdapter{container: container}
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s service call failed: %w", service, err)
	}
	return nil
}

func (a *todoAdapter) CreateTodo(ctx context.Context, in domain.CreateInput) (*domain.Todo, error) {
	var resp TodoResponse
	if err := callService(ctx, a.container, ServiceCreate, &CreateTodoRequest{Todo: in}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Todo, nil
}

func (a *todoAdapter) ListTodos(ctx context.Context) ([]*domain.Todo, error) {
	var resp ListTodosResponse
	if err := callService(ctx, a.container, ServiceList, &ListTodosRequest{}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	if resp.Todos == nil {
		resp.Todos = []*domain.Todo{}
	}
	return resp.Todos, nil
}

func (a *todoAdapter) UpdateTodo(ctx context.Context, id string, in domain.UpdateInput) (*domain.Todo, error) {
	var resp TodoResponse
	if err := callService(ctx, a.container, ServiceUpdate, &UpdateTodoRequest{ID: id, Todo: in}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Todo, nil
}

func (a *todoAdapter) DeleteTodo(ctx context.Context, id string) (*domain.Todo, error) {
	var resp TodoResponse
	if err := callService(ctx, a.container, ServiceDelete, &DeleteTodoRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error.Err()
	}
	return resp.Todo, nil
}

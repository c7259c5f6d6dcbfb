package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/todo-service/modules/persistence"
)

// Service names, relative to the module. The framework exposes them as
// services.todo.<name>.
const (
	ServiceCreate = "create"
	ServiceList   = "list"
	ServiceUpdate = "update"
	ServiceDelete = "delete"
)

// TodoModule serves the todo operations over the service container.
type TodoModule struct {
	persistence *persistence.Module
	timeout     time.Duration
	logger      types.Logger
	svc         *Service
}

// Compile-time interface checks.
var _ mono.Module = (*TodoModule)(nil)
var _ mono.ServiceProviderModule = (*TodoModule)(nil)
var _ mono.DependentModule = (*TodoModule)(nil)

// NewModule creates the todo module. timeout bounds every storage call.
func NewModule(timeout time.Duration, logger types.Logger) *TodoModule {
	return &TodoModule{
		timeout: timeout,
		logger:  logger,
	}
}

func (m *TodoModule) Name() string {
	return "todo"
}

// Dependencies makes the framework start persistence first.
func (m *TodoModule) Dependencies() []string {
	return []string{"persistence"}
}

func (m *TodoModule) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

// SetPersistence hands the module its storage. The store itself is only
// available once the persistence module has started.
func (m *TodoModule) SetPersistence(p *persistence.Module) {
	m.persistence = p
}

func (m *TodoModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCreate, json.Unmarshal, json.Marshal, m.createTodo,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceCreate, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceList, json.Unmarshal, json.Marshal, m.listTodos,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceList, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUpdate, json.Unmarshal, json.Marshal, m.updateTodo,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUpdate, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceDelete, json.Unmarshal, json.Marshal, m.deleteTodo,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceDelete, err)
	}

	m.logger.Info("Registered services", "services", "services.todo.{create,list,update,delete}")
	return nil
}

func (m *TodoModule) Start(_ context.Context) error {
	if m.persistence == nil {
		return fmt.Errorf("persistence dependency not set")
	}
	store := m.persistence.Store()
	if store == nil {
		return fmt.Errorf("persistence module has no store; was it started?")
	}

	m.svc = NewService(m.persistence.Gate(), store, persistence.IsValidID, m.timeout, m.logger)
	m.logger.Info("Todo module started", "operationTimeout", m.timeout.String())
	return nil
}

func (m *TodoModule) Stop(_ context.Context) error {
	m.logger.Info("Todo module stopped")
	return nil
}

// Domain failures are returned in the response payload so the caller can
// tell them apart from transport errors.

func (m *TodoModule) createTodo(ctx context.Context, req CreateTodoRequest, _ *mono.Msg) (TodoResponse, error) {
	t, err := m.svc.Create(ctx, req.Todo)
	if err != nil {
		return TodoResponse{Error: toPayload(err, msgCreateFailed)}, nil
	}
	return TodoResponse{Todo: t}, nil
}

func (m *TodoModule) listTodos(ctx context.Context, _ ListTodosRequest, _ *mono.Msg) (ListTodosResponse, error) {
	todos, err := m.svc.List(ctx)
	if err != nil {
		return ListTodosResponse{Error: toPayload(err, msgListFailed)}, nil
	}
	return ListTodosResponse{Todos: todos, Count: len(todos)}, nil
}

func (m *TodoModule) updateTodo(ctx context.Context, req UpdateTodoRequest, _ *mono.Msg) (TodoResponse, error) {
	t, err := m.svc.Update(ctx, req.ID, req.Todo)
	if err != nil {
		return TodoResponse{Error: toPayload(err, msgUpdateFailed)}, nil
	}
	return TodoResponse{Todo: t}, nil
}

func (m *TodoModule) deleteTodo(ctx context.Context, req DeleteTodoRequest, _ *mono.Msg) (TodoResponse, error) {
	t, err := m.svc.Delete(ctx, req.ID)
	if err != nil {
		return TodoResponse{Error: toPayload(err, msgDeleteFailed)}, nil
	}
	return TodoResponse{Todo: t}, nil
}

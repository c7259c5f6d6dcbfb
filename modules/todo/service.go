package todo

import (
	"context"
	"strings"
	"time"

	"github.com/go-monolith/mono/pkg/types"

	domain "github.com/example/todo-service/domain/todo"
)

// Failure messages returned with StorageFailure errors.
const (
	msgCreateFailed = "Failed to create todo."
	msgListFailed   = "Failed to list todos."
	msgUpdateFailed = "Failed to update todo."
	msgDeleteFailed = "Failed to delete todo."
)

// Gate reports whether storage can take work right now.
type Gate interface {
	Check() error
}

// Service implements the todo lifecycle: validation, availability gating
// and storage calls. It holds no todo state of its own.
type Service struct {
	gate    Gate
	store   domain.Store
	validID domain.IDValidator
	timeout time.Duration
	logger  types.Logger
}

// NewService creates a Service. A zero timeout disables the per-operation
// deadline.
func NewService(gate Gate, store domain.Store, validID domain.IDValidator, timeout time.Duration, logger types.Logger) *Service {
	return &Service{
		gate:    gate,
		store:   store,
		validID: validID,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Create validates the input and persists a new todo.
func (s *Service) Create(ctx context.Context, in domain.CreateInput) (*domain.Todo, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}

	t, err := validateCreate(in)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created, err := s.store.Insert(ctx, t)
	if err != nil {
		return nil, s.storageError(err, msgCreateFailed, "")
	}
	s.logger.Debug("Todo created", "id", created.ID)
	return created, nil
}

// List returns every todo, newest first.
func (s *Service) List(ctx context.Context) ([]*domain.Todo, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	todos, err := s.store.FindAll(ctx, domain.NewestFirst)
	if err != nil {
		return nil, s.storageError(err, msgListFailed, "")
	}
	return todos, nil
}

// Update merges the fields present in the input into an existing todo.
// The id is checked before any lookup, and the todo must exist before the
// fields are validated.
func (s *Service) Update(ctx context.Context, id string, in domain.UpdateInput) (*domain.Todo, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	if !s.validID(id) {
		return nil, domain.InvalidIdentifier(id)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.store.FindByID(ctx, id); err != nil {
		return nil, s.storageError(err, msgUpdateFailed, id)
	}

	patch, err := validateUpdate(in)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, s.storageError(err, msgUpdateFailed, id)
	}
	s.logger.Debug("Todo updated", "id", id)
	return updated, nil
}

// Delete removes a todo and returns its last state.
func (s *Service) Delete(ctx context.Context, id string) (*domain.Todo, error) {
	if err := s.gate.Check(); err != nil {
		return nil, err
	}
	if !s.validID(id) {
		return nil, domain.InvalidIdentifier(id)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return nil, s.storageError(err, msgDeleteFailed, id)
	}
	s.logger.Debug("Todo deleted", "id", id)
	return deleted, nil
}

// storageError maps a tagged storage error to the service taxonomy.
func (s *Service) storageError(err error, message, id string) error {
	switch domain.FailureKindOf(err) {
	case domain.FailureNotFound:
		return domain.NotFound(id)
	case domain.FailureValidation:
		return domain.InvalidInput(message, err.Error())
	case domain.FailureConnectionLost:
		s.logger.Warn("Storage connection lost", "error", err)
		return domain.StorageFailure(message, true, err)
	default:
		s.logger.Error("Storage operation failed", "error", err)
		return domain.StorageFailure(message, false, err)
	}
}

func validateCreate(in domain.CreateInput) (*domain.Todo, error) {
	if !in.Title.Set || in.Title.Null {
		return nil, domain.InvalidInput("Title is required.", "title is missing")
	}
	title := strings.TrimSpace(in.Title.Value)
	if title == "" {
		return nil, domain.InvalidInput("Title is required.", "title is blank")
	}

	return &domain.Todo{
		Title:       title,
		Description: strings.TrimSpace(in.Description.Value),
		Completed:   in.Completed.Value,
	}, nil
}

func validateUpdate(in domain.UpdateInput) (domain.Patch, error) {
	var patch domain.Patch

	if in.Title.Set {
		if in.Title.Null {
			return domain.Patch{}, domain.InvalidInput("Title cannot be empty.", "title is null")
		}
		title := strings.TrimSpace(in.Title.Value)
		if title == "" {
			return domain.Patch{}, domain.InvalidInput("Title cannot be empty.", "title is blank")
		}
		patch.Title = &title
	}

	if in.Description.Set {
		desc := strings.TrimSpace(in.Description.Value)
		patch.Description = &desc
	}

	if in.Completed.Set {
		if in.Completed.Null {
			return domain.Patch{}, domain.InvalidInput("Completed must be a boolean.", "completed is null")
		}
		completed := in.Completed.Value
		patch.Completed = &completed
	}

	return patch, nil
}

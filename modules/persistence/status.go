package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// StatusRequest is the request for the status service.
type StatusRequest struct{}

// StatusResponse reports the storage connection.
type StatusResponse struct {
	Driver    string `json:"driver"`
	State     string `json:"state"`
	Available bool   `json:"available"`
}

// StatusPort lets other modules read the storage state over the service
// container.
type StatusPort interface {
	Status(ctx context.Context) (*StatusResponse, error)
}

var _ mono.ServiceProviderModule = (*Module)(nil)

// RegisterServices registers services.persistence.status.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "status", json.Unmarshal, json.Marshal, m.status,
	); err != nil {
		return fmt.Errorf("failed to register status service: %w", err)
	}

	m.logger.Info("Registered services", "services", "services.persistence.status")
	return nil
}

func (m *Module) status(_ context.Context, _ StatusRequest, _ *mono.Msg) (StatusResponse, error) {
	state := m.gate.State()
	return StatusResponse{
		Driver:    m.cfg.Driver,
		State:     state.String(),
		Available: state == Connected,
	}, nil
}

type statusAdapter struct {
	container mono.ServiceContainer
}

// NewStatusAdapter creates a StatusPort over the persistence module's
// service container.
func NewStatusAdapter(container mono.ServiceContainer) StatusPort {
	if container == nil {
		panic("status adapter requires non-nil ServiceContainer")
	}
	return &statusAdapter{container: container}
}

func (a *statusAdapter) Status(ctx context.Context) (*StatusResponse, error) {
	var resp StatusResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"status",
		json.Marshal,
		json.Unmarshal,
		&StatusRequest{},
		&resp,
	); err != nil {
		return nil, fmt.Errorf("status service call failed: %w", err)
	}
	return &resp, nil
}

package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/example/todo-service/config"
	"github.com/example/todo-service/domain/todo"
)

// Module owns the storage connection and exposes the Gate and Store to the
// modules that depend on it.
type Module struct {
	cfg     config.StorageConfig
	logger  types.Logger
	clock   Clock
	tracker *Tracker
	gate    *Gate

	store  todo.Store
	client *mongo.Client
	sqlite *SQLiteStore

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the persistence module. The gate is usable immediately
// and reports disconnected until Start opens the backend.
func NewModule(cfg config.StorageConfig, logger types.Logger) *Module {
	tracker := NewTracker()
	return &Module{
		cfg:     cfg,
		logger:  logger,
		tracker: tracker,
		gate:    NewGate(tracker),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "persistence"
}

// Gate returns the availability gate.
func (m *Module) Gate() *Gate {
	return m.gate
}

// Store returns the active backend. It is nil before Start.
func (m *Module) Store() todo.Store {
	return m.store
}

// Start opens the configured backend. For MongoDB the server may still be
// unreachable when Start returns; the gate keeps requests out until the
// driver finds a writable server.
func (m *Module) Start(ctx context.Context) error {
	switch m.cfg.Driver {
	case "mongo":
		return m.startMongo(ctx)
	case "sqlite":
		return m.startSQLite(ctx)
	case "memory":
		m.tracker.BeginOpen()
		m.store = NewMemoryStore(m.clock)
		m.tracker.Observe(Connected)
		m.logger.Info("Using in-memory todo storage")
		return nil
	default:
		return fmt.Errorf("unsupported storage driver %q", m.cfg.Driver)
	}
}

func (m *Module) startMongo(ctx context.Context) error {
	m.logger.Info("Connecting to MongoDB",
		"uri", config.Redact(m.cfg.MongoURI),
		"collection", m.cfg.MongoCollection)

	client, err := connectMongo(ctx, m.cfg.MongoURI, m.cfg.ConnectTimeout, m.tracker)
	if err != nil {
		return fmt.Errorf("failed to create mongo client: %w", err)
	}
	m.client = client

	coll := client.Database(config.DatabaseName(m.cfg.MongoURI)).Collection(m.cfg.MongoCollection)
	store := NewMongoStore(coll, m.clock)
	m.store = store

	bgCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.verifyMongo(bgCtx, store)
	}()
	return nil
}

// verifyMongo pings the server once and prepares the collection. Failures
// are logged only; the topology monitor keeps tracking the state.
func (m *Module) verifyMongo(ctx context.Context, store *MongoStore) {
	pingCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	if err := m.client.Ping(pingCtx, nil); err != nil {
		m.logger.Error("MongoDB connection error", "error", err, "state", m.tracker.State().String())
		return
	}
	m.logger.Info("Connected to MongoDB", "database", config.DatabaseName(m.cfg.MongoURI))

	if err := store.EnsureSchema(pingCtx); err != nil {
		m.logger.Warn("Failed to prepare todos collection", "error", err)
	}
}

func (m *Module) startSQLite(_ context.Context) error {
	m.logger.Info("Opening SQLite database", "path", m.cfg.SQLitePath)
	m.tracker.BeginOpen()

	db, err := OpenSQLite(m.cfg.SQLitePath, false)
	if err != nil {
		m.tracker.Observe(Disconnected)
		return err
	}
	store := NewSQLiteStore(db, m.clock)
	if err := store.Migrate(); err != nil {
		m.tracker.Observe(Disconnected)
		return err
	}

	m.sqlite = store
	m.store = store
	m.tracker.Observe(Connected)
	return nil
}

// Stop releases the backend. The gate reports disconnecting while the
// connection drains and disconnected afterwards.
func (m *Module) Stop(ctx context.Context) error {
	m.tracker.BeginClose()
	defer m.tracker.Closed()

	if m.cancel != nil {
		m.cancel()
		m.wg.Wait()
	}

	switch {
	case m.client != nil:
		m.logger.Info("Closing MongoDB connection")
		if err := m.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to disconnect from mongo: %w", err)
		}
	case m.sqlite != nil:
		m.logger.Info("Closing SQLite database")
		if err := m.sqlite.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	m.logger.Info("Storage connection closed")
	return nil
}

// Health reports the connection state of the backend.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	state := m.gate.State()
	details := map[string]any{
		"driver": m.cfg.Driver,
		"state":  state.String(),
	}

	if !m.gate.IsAvailable() {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("storage %s", state),
			Details: details,
		}
	}

	if m.sqlite != nil {
		if err := m.sqlite.Ping(ctx); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("database ping failed: %v", err),
				Details: details,
			}
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: details,
	}
}

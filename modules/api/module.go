package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/example/todo-service/config"
	"github.com/example/todo-service/modules/persistence"
	"github.com/example/todo-service/modules/ratelimit"
	"github.com/example/todo-service/modules/todo"
)

// Module is the driving adapter that exposes the todo REST endpoints.
// It calls the todo module through TodoPort.
type Module struct {
	cfg     config.HTTPConfig
	logger  types.Logger
	app     *fiber.App
	todos   todo.TodoPort
	storage persistence.StatusPort
	gate    *persistence.Gate
	limiter *ratelimit.Module
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.DependentModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates the HTTP module.
func NewModule(cfg config.HTTPConfig, logger types.Logger) *Module {
	return &Module{cfg: cfg, logger: logger}
}

func (m *Module) Name() string {
	return "api"
}

// Dependencies returns the modules whose service containers the API uses.
func (m *Module) Dependencies() []string {
	return []string{"todo", "persistence"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "todo":
		m.todos = todo.NewTodoAdapter(container)
	case "persistence":
		m.storage = persistence.NewStatusAdapter(container)
	}
}

// SetGate installs the availability check run before every /api route.
func (m *Module) SetGate(g *persistence.Gate) {
	m.gate = g
}

// SetRateLimiter enables per-IP rate limiting on /api.
func (m *Module) SetRateLimiter(l *ratelimit.Module) {
	m.limiter = l
}

// Start builds the Fiber app and starts listening.
func (m *Module) Start(_ context.Context) error {
	if m.todos == nil {
		return fmt.Errorf("todos dependency not set")
	}

	m.app = m.newApp()
	addr := fmt.Sprintf(":%d", m.cfg.Port)

	// Start server in goroutine with startup error detection
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	m.logger.Info("HTTP server stopped")
	return nil
}

func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.cfg.Port,
		},
	}
}

func (m *Module) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Todo API",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.registerRoutes(app)
	return app
}

func (m *Module) registerRoutes(app *fiber.App) {
	app.Get("/status", m.status)

	api := app.Group("/api")
	if m.limiter != nil {
		if h := m.limiter.Handler(); h != nil {
			api.Use(h)
		}
	}
	api.Use(m.requireStorage)

	todos := api.Group("/todos")
	todos.Post("/", m.createTodo)
	todos.Get("/", m.listTodos)
	todos.Put("/:id", m.updateTodo)
	todos.Delete("/:id", m.deleteTodo)

	if m.cfg.StaticDir != "" {
		app.Static("/", m.cfg.StaticDir)
	}
}

// errorHandler renders unhandled errors in the response envelope.
func (m *Module) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "path", c.Path(), "error", err)
	}

	return c.Status(code).JSON(Envelope{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/todo-service/config"
	"github.com/example/todo-service/modules/api"
	"github.com/example/todo-service/modules/persistence"
	"github.com/example/todo-service/modules/ratelimit"
	"github.com/example/todo-service/modules/todo"
)

func main() {
	configPath := flag.String("config", ".env", "path to an optional .env file")
	flag.Parse()

	log.Println("=== Todo API ===")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel(cfg.LogLevel)),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	persistenceModule := persistence.NewModule(cfg.Storage, logger.WithModule("persistence"))

	todoModule := todo.NewModule(cfg.Storage.OperationTimeout, logger.WithModule("todo"))
	todoModule.SetPersistence(persistenceModule)

	apiModule := api.NewModule(cfg.HTTP, logger.WithModule("api"))
	apiModule.SetGate(persistenceModule.Gate())

	// Order: independent modules first, then modules with dependencies
	app.Register(persistenceModule)
	app.Register(todoModule)
	if cfg.RateLimit.Enabled() {
		limiter := ratelimit.NewModule(cfg.RateLimit, logger.WithModule("ratelimit"))
		apiModule.SetRateLimiter(limiter)
		app.Register(limiter)
	}
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// logLevel maps LOG_LEVEL to a mono log level. Unknown values fall back
// to info.
func logLevel(level string) mono.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return mono.LogLevelDebug
	case "warn", "warning":
		return mono.LogLevelWarn
	case "error":
		return mono.LogLevelError
	default:
		return mono.LogLevelInfo
	}
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Printf("Storage driver: %s", cfg.Storage.Driver)
	if cfg.Storage.Driver == "mongo" {
		log.Printf("MongoDB: %s", config.Redact(cfg.Storage.MongoURI))
	}
	if cfg.RateLimit.Enabled() {
		log.Printf("Rate limit: %d requests per %s (redis %s)", cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.RedisAddr)
	}
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.HTTP.Port)
	log.Println("  POST   /api/todos      - Create a todo")
	log.Println("  GET    /api/todos      - List todos, newest first")
	log.Println("  PUT    /api/todos/:id  - Update a todo")
	log.Println("  DELETE /api/todos/:id  - Delete a todo")
	log.Println("  GET    /status         - Server and database status")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}

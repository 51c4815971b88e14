// internal/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	router "streamcart-orders/internal/api"
	"streamcart-orders/internal/api/handler"
	apimw "streamcart-orders/internal/api/middleware"
	"streamcart-orders/internal/auth"
	"streamcart-orders/internal/config"
	"streamcart-orders/internal/events"
	"streamcart-orders/internal/repository"
	"streamcart-orders/internal/repository/postgres"
	"streamcart-orders/internal/service"
	"streamcart-orders/internal/util"
	"streamcart-orders/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config   *config.AppConfig
	Logger   *slog.Logger
	DB       *sqlx.DB
	Registry *prometheus.Registry

	// Repositories
	UserRepository  repository.UserRepository
	OrderRepository repository.OrderRepository

	// Auth and events
	Tokens  *auth.TokenService
	Emitter *events.Emitter

	// Services
	UserService  service.UserService
	OrderService service.OrderService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{Logger: util.GetLogger()}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger(cfg.LogLevel)
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if app.Config.AutoMigrate {
		if err := db.Migrate(ctx, app.DB.DB); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
		app.Logger.Info("Database migrations applied.")
	}

	// 4. Initialize Repositories
	app.UserRepository = postgres.NewUserRepository()
	app.OrderRepository = postgres.NewOrderRepository()
	app.Logger.Info("Repositories initialized.")

	// 5. Metrics, tokens and the event emitter
	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app.Tokens, err = auth.NewTokenService(app.Config.Auth.JWTSecret, auth.WithTTL(app.Config.Auth.TokenTTL))
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	sink, err := newEventSink(app.Config.Events, app.Logger)
	if err != nil {
		return fmt.Errorf("failed to create event sink: %w", err)
	}
	app.Emitter = events.NewEmitter(sink, events.EmitterConfig{
		Topic:          app.Config.Events.Topic,
		PublishTimeout: app.Config.Events.PublishTimeout,
	}, app.Logger, events.NewMetrics(app.Registry))
	app.Logger.Info("Event emitter initialized.", "sink", app.Config.Events.Sink, "topic", app.Config.Events.Topic)

	// 6. Initialize Services
	// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
	app.UserService = service.NewUserService(app.DB, app.UserRepository, app.Logger)
	app.OrderService = service.NewOrderService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.UserRepository,
		app.OrderRepository,
		app.Emitter,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 7. Initialize HTTP Handlers and Router
	app.HTTPHandler = router.NewRouter(router.RouterDeps{
		AuthHandler:   handler.NewAuthHandler(app.UserService, app.Tokens, app.Logger),
		OrderHandler:  handler.NewOrderHandler(app.OrderService, app.Logger),
		Authenticator: apimw.NewAuthenticator(app.Tokens, app.UserService, app.Logger),
		Metrics:       apimw.NewHTTPMetrics(app.Registry),
		Gatherer:      app.Registry,
	})
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// newEventSink builds the sink selected by cfg.Sink.
func newEventSink(cfg config.EventsConfig, logger *slog.Logger) (events.Sink, error) {
	switch cfg.Sink {
	case config.EventSinkKafka:
		return events.NewKafkaSink(cfg.KafkaBrokers)
	case config.EventSinkRedis:
		return events.NewRedisStreamSink(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.EventSinkLog:
		return events.NewLogSink(logger), nil
	default:
		return nil, fmt.Errorf("unsupported event sink %q", cfg.Sink)
	}
}

// Shutdown gracefully shuts down application resources.
// In-flight events are drained before the database is closed.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	var errs []error
	if app.Emitter != nil {
		if err := app.Emitter.Close(ctx); err != nil {
			app.Logger.Error("Failed to close event emitter", "error", err)
			errs = append(errs, fmt.Errorf("failed to close event emitter: %w", err))
		} else {
			app.Logger.Info("Event emitter closed.")
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			errs = append(errs, fmt.Errorf("failed to close database connection: %w", err))
		} else {
			app.Logger.Info("Database connection closed.")
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}

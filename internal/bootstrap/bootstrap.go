package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	scheduleinadapter "confsched/internal/modules/schedule/adapter/in"
	scheduleoutadapter "confsched/internal/modules/schedule/adapter/out"
	scheduledomain "confsched/internal/modules/schedule/domain"
	scheduleout "confsched/internal/modules/schedule/port/out"
	scheduleservice "confsched/internal/modules/schedule/service"
	scheduleusecase "confsched/internal/modules/schedule/usecase"
	"confsched/internal/platform/clock"
	"confsched/internal/platform/config"
	"confsched/internal/platform/id"
)

const errorBuffer = 64

type App struct {
	ScheduleCLI scheduleinadapter.CLIHandler
	UserID      string

	errors  *scheduleoutadapter.ChannelErrorSink
	metrics *scheduleoutadapter.PrometheusMetrics
	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, closeStore, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	app := &App{
		errors:  scheduleoutadapter.NewChannelErrorSink(errorBuffer),
		metrics: scheduleoutadapter.NewPrometheusMetrics(),
	}
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	userID, err := scheduleservice.EnsureUserID(ctx, store, id.UserID{Prefix: cfg.UserPrefix})
	if err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("ensure user id: %w", err)
	}
	app.UserID = userID

	remote := scheduleoutadapter.NewHTTPRemote(cfg.Endpoint, userID, cfg.Timeout)
	engine := scheduleservice.NewEngine(store, remote, app.errors,
		scheduleservice.WithLogger(logger.With("component", "schedule")),
		scheduleservice.WithMetrics(app.metrics),
		scheduleservice.WithClock(clock.SystemClock{}),
	)
	app.ScheduleCLI = scheduleinadapter.NewCLIHandler(scheduleusecase.NewInteractor(engine))
	return app, nil
}

func newStore(cfg config.Config) (scheduleout.Store, func() error, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		store, err := scheduleoutadapter.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("new sqlite store: %w", err)
		}
		return store, store.Close, nil
	case config.StorageMemory:
		return scheduleoutadapter.NewMemoryStore(), nil, nil
	default:
		return scheduleoutadapter.NewFileStore(cfg.StateDir), nil, nil
	}
}

// PendingErrors drains the error channel into user-facing messages.
func (a *App) PendingErrors() []string {
	kinds := a.errors.Drain()
	out := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, kind.Message())
	}
	return out
}

// Errors streams failures as they are reported. Reading from it competes
// with PendingErrors for the same buffer.
func (a *App) Errors() <-chan scheduledomain.ErrorKind {
	return a.errors.Errors()
}

func (a *App) MetricsHandler() http.Handler {
	return a.metrics.Handler()
}

func (a *App) Close() error {
	var first error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

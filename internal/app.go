package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/starford/memosync/internal/engine"
	"github.com/starford/memosync/internal/localstore"
	"github.com/starford/memosync/internal/noteservice"
	"github.com/starford/memosync/internal/notify"
	"github.com/starford/memosync/internal/orchestrator"
	"github.com/starford/memosync/internal/remote"
	"github.com/starford/memosync/internal/sse"
)

// App is the wired sync stack shared by serve, mcp and the one-shot commands.
type App struct {
	Config  *Config
	Version string
	Logger  *slog.Logger
	Store   localstore.Store
	Sync    *orchestrator.Orchestrator
	Notes   *noteservice.Service

	logCloser io.Closer
}

// Open builds the application from opts. Close releases it.
func Open(opts ...Option) (*App, error) {
	a := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	logger, logCloser := newLogger(cfg.App, a.logOutput)

	store, err := localstore.Open(cfg.Local.Driver, cfg.Local.Path, logger)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("init local store: %w", err)
	}

	memory := a.memory
	if memory == nil && cfg.Remote.Driver == remote.DriverMemory {
		memory = remote.NewMemory()
	}
	httpClient := &http.Client{Timeout: cfg.Remote.Timeout}
	open := remote.NewOpener(remote.Options{
		Driver:        cfg.Remote.Driver,
		Dir:           cfg.Remote.Dir,
		GitHubBaseURL: cfg.Remote.GitHub.BaseURL,
		HTTPClient:    httpClient,
		Memory:        memory,
	})

	eng := engine.New(store, open,
		engine.WithLogger(logger),
		engine.WithFetchConcurrency(cfg.Sync.FetchConcurrency),
	)

	var sink notify.Sink
	syncOpts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithDebounce(cfg.Sync.Debounce),
		orchestrator.WithDisplayInterval(cfg.Sync.DisplayInterval),
		orchestrator.WithConnectivity(orchestrator.HTTPProbe{
			URL:     cfg.Sync.ConnectivityURL,
			Client:  httpClient,
			Timeout: cfg.Sync.ConnectivityTimeout,
		}),
	}
	var svcOpts []noteservice.Option
	if b := a.broker; b != nil {
		sink = b.Emit
		syncOpts = append(syncOpts, orchestrator.WithStateSink(func(st orchestrator.Status) {
			b.Emit(sse.TypeSyncState, st)
		}))
		svcOpts = append(svcOpts, noteservice.WithEvents(b.PublishNoteEvent))
	}
	syncOpts = append(syncOpts, orchestrator.WithNotifier(notify.NewCenter(cfg.Sync.DisplayInterval, sink)))

	orch := orchestrator.New(eng, syncOpts...)

	return &App{
		Config:    cfg,
		Version:   a.version,
		Logger:    logger,
		Store:     store,
		Sync:      orch,
		Notes:     noteservice.NewService(store, orch, svcOpts...),
		logCloser: logCloser,
	}, nil
}

// closeWait bounds how long Close lets background remote work finish before cancelling it.
const closeWait = 10 * time.Second

// Close lets background remote work finish for up to closeWait, stops the orchestrator
// and closes the store.
func (a *App) Close() error {
	if !a.Sync.WaitTimeout(closeWait) {
		a.Logger.Warn("background sync work still running at shutdown, cancelling")
	}
	a.Sync.Close()
	return errors.Join(a.Store.Close(), a.logCloser.Close())
}

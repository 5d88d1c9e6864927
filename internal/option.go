package internal

import (
	"io"

	"github.com/starford/memosync/internal/remote"
	"github.com/starford/memosync/internal/sse"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	logOutput io.Writer
	broker    *sse.Broker
	memory    *remote.Memory
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server and the logs.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput sets where logs go when no log file is configured.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithBroker routes notifications, sync state and note changes to SSE subscribers.
func WithBroker(b *sse.Broker) Option {
	return func(a *application) {
		a.broker = b
	}
}

// WithMemoryRemote supplies the instance backing the memory remote driver.
func WithMemoryRemote(m *remote.Memory) Option {
	return func(a *application) {
		a.memory = m
	}
}

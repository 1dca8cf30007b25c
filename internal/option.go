package internal

import (
	"io"

	"github.com/starford/wordmaster/internal/kv"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	port      kv.Port
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput overrides where logs are written.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithPort uses an already opened storage port instead of the configured backend.
func WithPort(p kv.Port) Option {
	return func(a *application) {
		a.port = p
	}
}

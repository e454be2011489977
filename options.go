package ggcore

import (
	"io"
	"log/slog"

	"github.com/gogpu/ggcore/backend"
)

// Option configures a Runtime during creation.
//
// Example:
//
//	// Backend from the config file
//	rt, err := ggcore.New(cfg)
//
//	// Explicit device (dependency injection)
//	rt, err := ggcore.New(cfg, ggcore.WithDevice(dev))
type Option func(*runtimeOptions)

// runtimeOptions holds optional configuration for Runtime creation.
type runtimeOptions struct {
	backend   string
	device    backend.Device
	logger    *slog.Logger
	logOutput io.Writer
}

// WithBackend overrides the backend named in the config.
func WithBackend(name string) Option {
	return func(o *runtimeOptions) {
		o.backend = name
	}
}

// WithDevice uses dev instead of opening a backend. The runtime calls
// dev.Init and takes ownership: Close closes it.
func WithDevice(dev backend.Device) Option {
	return func(o *runtimeOptions) {
		o.device = dev
	}
}

// WithLogger installs l as the ggcore logger, taking precedence over the
// config's log level.
func WithLogger(l *slog.Logger) Option {
	return func(o *runtimeOptions) {
		o.logger = l
	}
}

// WithLogOutput sets where the config's log level writes to. Defaults to
// standard error.
func WithLogOutput(w io.Writer) Option {
	return func(o *runtimeOptions) {
		o.logOutput = w
	}
}

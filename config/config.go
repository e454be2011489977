// Package config loads runtime settings from YAML files.
//
// A config file only needs the keys it changes; everything else keeps the
// value from Default:
//
//	backend: software
//	mesh_heap:
//	  initial_vertices: 4096
//	  grow_percent: 2
//	log:
//	  level: debug
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/ggcore/corethread"
	"github.com/gogpu/ggcore/mesh"
)

// ErrInvalidConfig is returned for config values out of range.
var ErrInvalidConfig = errors.New("config: invalid config")

// Config holds the runtime settings.
type Config struct {
	// Backend names the render device. Empty selects the best available.
	Backend    string           `yaml:"backend"`
	CoreThread CoreThreadConfig `yaml:"core_thread"`
	MeshHeap   MeshHeapConfig   `yaml:"mesh_heap"`
	Queries    QueriesConfig    `yaml:"queries"`
	Log        LogConfig        `yaml:"log"`
}

// CoreThreadConfig configures the core thread.
type CoreThreadConfig struct {
	// QueueDepth is how far the core thread may fall behind before
	// producers block.
	QueueDepth int `yaml:"queue_depth"`
}

// MeshHeapConfig holds the defaults for mesh heaps created by the runtime.
type MeshHeapConfig struct {
	InitialVertices uint32  `yaml:"initial_vertices"`
	InitialIndices  uint32  `yaml:"initial_indices"`
	GrowPercent     float64 `yaml:"grow_percent"`
	// MaxEventQueries bounds the per-heap event query pool. 0 is unbounded.
	MaxEventQueries int `yaml:"max_event_queries"`
}

// QueriesConfig configures the query manager.
type QueriesConfig struct {
	// MaxOutstanding bounds queries in flight. 0 is unbounded.
	MaxOutstanding int `yaml:"max_outstanding"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Empty disables logging.
	Level string `yaml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		CoreThread: CoreThreadConfig{QueueDepth: corethread.DefaultQueueDepth},
		MeshHeap: MeshHeapConfig{
			InitialVertices: 1024,
			InitialIndices:  3072,
			GrowPercent:     mesh.DefaultGrowPercent,
		},
	}
}

// Load reads and validates the YAML file at path on top of Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%w (%s)", err, path)
	}
	return cfg, nil
}

// Parse decodes and validates YAML data on top of Default. Unknown keys are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks every value is in range.
func (c Config) Validate() error {
	var errs []error
	if c.CoreThread.QueueDepth < 1 {
		errs = append(errs, fmt.Errorf("core_thread.queue_depth must be at least 1, got %d", c.CoreThread.QueueDepth))
	}
	if c.MeshHeap.InitialVertices == 0 {
		errs = append(errs, errors.New("mesh_heap.initial_vertices must be positive"))
	}
	if c.MeshHeap.InitialIndices == 0 {
		errs = append(errs, errors.New("mesh_heap.initial_indices must be positive"))
	}
	if c.MeshHeap.GrowPercent <= 1 {
		errs = append(errs, fmt.Errorf("mesh_heap.grow_percent must be greater than 1, got %v", c.MeshHeap.GrowPercent))
	}
	if c.MeshHeap.MaxEventQueries < 0 {
		errs = append(errs, fmt.Errorf("mesh_heap.max_event_queries must not be negative, got %d", c.MeshHeap.MaxEventQueries))
	}
	if c.Queries.MaxOutstanding < 0 {
		errs = append(errs, fmt.Errorf("queries.max_outstanding must not be negative, got %d", c.Queries.MaxOutstanding))
	}
	if _, _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// SlogLevel maps Level to a slog level. enabled is false when Level is
// empty.
func (l LogConfig) SlogLevel() (level slog.Level, enabled bool, err error) {
	switch strings.ToLower(l.Level) {
	case "":
		return 0, false, nil
	case "debug":
		return slog.LevelDebug, true, nil
	case "info":
		return slog.LevelInfo, true, nil
	case "warn", "warning":
		return slog.LevelWarn, true, nil
	case "error":
		return slog.LevelError, true, nil
	default:
		return 0, false, fmt.Errorf("log.level %q is not one of debug, info, warn, error", l.Level)
	}
}

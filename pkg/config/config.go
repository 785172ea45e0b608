package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fluxorio/arquebus/pkg/bus"
	"github.com/fluxorio/arquebus/pkg/core"
	"github.com/fluxorio/arquebus/pkg/worker"
)

// Config is the application configuration for binaries embedding a bus
type Config struct {
	Bus     BusConfig     `yaml:"bus" json:"bus"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// BusConfig configures delivery behaviour
type BusConfig struct {
	// QueueCapacity is the default listener capacity; 0 means unbounded
	QueueCapacity int `yaml:"queue_capacity" json:"queue_capacity"`
	// Workers > 0 runs callbacks on a fixed pool instead of one goroutine each
	Workers        int  `yaml:"workers" json:"workers"`
	WorkerQueue    int  `yaml:"worker_queue" json:"worker_queue"`
	FaultIsolation bool `yaml:"fault_isolation" json:"fault_isolation"`
	AtomicOnce     bool `yaml:"atomic_once" json:"atomic_once"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	JSON  bool   `yaml:"json" json:"json"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Address   string `yaml:"address" json:"address"`
}

type TracingConfig struct {
	Exporter    string  `yaml:"exporter" json:"exporter"`
	Endpoint    string  `yaml:"endpoint" json:"endpoint"`
	ServiceName string  `yaml:"service_name" json:"service_name"`
	SampleRate  float64 `yaml:"sample_rate" json:"sample_rate"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Bus: BusConfig{
			WorkerQueue: 1024,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "arquebus",
			Address:   ":9090",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "arquebus",
			SampleRate:  1.0,
		},
	}
}

// Load reads path over the defaults, choosing the parser by file extension
func Load(path string) (Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = LoadYAML(path, &cfg)
	case ".json":
		err = LoadJSON(path, &cfg)
	default:
		return cfg, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	if err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg to path, choosing the format by file extension
func Save(path string, cfg Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SaveYAML(path, cfg)
	case ".json":
		return SaveJSON(path, cfg)
	}
	return fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

// Validate checks value ranges
func (c Config) Validate() error {
	if err := core.ValidateCapacity(c.Bus.QueueCapacity); err != nil {
		return fmt.Errorf("bus.queue_capacity: %w", err)
	}
	if c.Bus.Workers < 0 {
		return fmt.Errorf("bus.workers: %w", core.InvalidArgument("must not be negative"))
	}
	if c.Bus.WorkerQueue < 0 {
		return fmt.Errorf("bus.worker_queue: %w", core.InvalidArgument("must not be negative"))
	}

	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "ERROR":
	default:
		return fmt.Errorf("logging.level: %w", core.InvalidArgument(fmt.Sprintf("unknown level %q", c.Logging.Level)))
	}

	switch c.Tracing.Exporter {
	case "", "none", "stdout", "jaeger", "zipkin":
	default:
		return fmt.Errorf("tracing.exporter: %w", core.InvalidArgument(fmt.Sprintf("unknown exporter %q", c.Tracing.Exporter)))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate: %w", core.InvalidArgument("must be between 0 and 1"))
	}
	return nil
}

// LoggerConfig maps the logging section onto core.LoggerConfig
func (c Config) LoggerConfig() core.LoggerConfig {
	return core.LoggerConfig{
		JSONOutput: c.Logging.JSON,
		Level:      strings.ToUpper(c.Logging.Level),
	}
}

// NewExecutor builds the callback executor. With workers configured it starts a
// pool; the returned stop func drains it.
func (c BusConfig) NewExecutor(logger core.Logger) (worker.Executor, func(context.Context)) {
	if c.Workers <= 0 {
		return worker.NewGoExecutor(), func(context.Context) {}
	}
	pool := worker.NewWorkerPool(c.Workers, c.WorkerQueue).WithLogger(logger)
	pool.Start()
	return pool, pool.Stop
}

// BusOptions maps the bus section onto bus options
func (c Config) BusOptions(logger core.Logger, observer bus.Observer, executor worker.Executor) []bus.Option {
	opts := []bus.Option{
		bus.WithLogger(logger),
		bus.WithExecutor(executor),
		bus.WithDefaultQueueCapacity(c.Bus.QueueCapacity),
	}
	if observer != nil {
		opts = append(opts, bus.WithObserver(observer))
	}
	if c.Bus.FaultIsolation {
		opts = append(opts, bus.WithFaultIsolation())
	}
	if c.Bus.AtomicOnce {
		opts = append(opts, bus.WithAtomicOnce())
	}
	return opts
}

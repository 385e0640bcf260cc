// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Process settings backed by viper: defaults, optional YAML file, environment.

package control

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/momentics/hioload-reactor/reactor"
	"github.com/momentics/hioload-reactor/transport/tcp"
)

// EnvPrefix prefixes every environment override, e.g. HIOLOAD_REACTOR_THREADS.
const EnvPrefix = "HIOLOAD"

// Settings is the full process configuration.
type Settings struct {
	ListenAddr     string           `mapstructure:"listen_addr"`
	MetricsAddr    string           `mapstructure:"metrics_addr"` // empty disables the metrics server
	LogLevel       string           `mapstructure:"log_level"`
	LogDevelopment bool             `mapstructure:"log_development"`
	Reactor        ReactorSettings  `mapstructure:"reactor"`
	Listener       ListenerSettings `mapstructure:"listener"`
}

// ReactorSettings mirrors reactor.Config. Threads 0 means one per CPU.
type ReactorSettings struct {
	Threads           int           `mapstructure:"threads"`
	QueueCapacity     int           `mapstructure:"queue_capacity"`
	BatchSize         int           `mapstructure:"batch_size"`
	BufferSize        int           `mapstructure:"buffer_size"`
	MaxConnsPerThread int           `mapstructure:"max_conns_per_thread"`
	MaxEvents         int           `mapstructure:"max_events"`
	WaitTimeout       time.Duration `mapstructure:"wait_timeout"`
	SweepEvery        int           `mapstructure:"sweep_every"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	PinThreads        bool          `mapstructure:"pin_threads"`
	PinStrict         bool          `mapstructure:"pin_strict"`
	PinBaseCPU        int           `mapstructure:"pin_base_cpu"`
}

// ListenerSettings mirrors tcp.ListenerConfig.
type ListenerSettings struct {
	Backlog   int  `mapstructure:"backlog"`
	ReusePort bool `mapstructure:"reuse_port"`
	NoDelay   bool `mapstructure:"no_delay"`
	AcceptCPU int  `mapstructure:"accept_cpu"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":9001")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", false)

	v.SetDefault("reactor.threads", 0)
	v.SetDefault("reactor.queue_capacity", reactor.DefaultQueueCapacity)
	v.SetDefault("reactor.batch_size", reactor.DefaultBatchSize)
	v.SetDefault("reactor.buffer_size", reactor.DefaultBufferSize)
	v.SetDefault("reactor.max_conns_per_thread", reactor.DefaultMaxConnsPerThread)
	v.SetDefault("reactor.max_events", reactor.DefaultMaxEvents)
	v.SetDefault("reactor.wait_timeout", reactor.DefaultWaitTimeout)
	v.SetDefault("reactor.sweep_every", reactor.DefaultSweepEvery)
	v.SetDefault("reactor.idle_timeout", reactor.DefaultIdleTimeout)
	v.SetDefault("reactor.pin_threads", false)
	v.SetDefault("reactor.pin_strict", false)
	v.SetDefault("reactor.pin_base_cpu", 0)

	v.SetDefault("listener.backlog", tcp.DefaultBacklog)
	v.SetDefault("listener.reuse_port", true)
	v.SetDefault("listener.no_delay", true)
	v.SetDefault("listener.accept_cpu", -1)
}

// Loader reads Settings and notifies reload hooks when the file changes.
type Loader struct {
	v     *viper.Viper
	path  string
	mu    sync.Mutex
	hooks []func(*Settings)
}

// NewLoader prepares a loader. path may be empty to use defaults and
// environment only.
func NewLoader(path string) *Loader {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
	}
	return &Loader{v: v, path: path}
}

// Load reads the config file (if any) and decodes the merged settings.
func (l *Loader) Load() (*Settings, error) {
	if l.path != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", l.path, err)
		}
	}
	var s Settings
	if err := l.v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSettings is NewLoader(path).Load().
func LoadSettings(path string) (*Settings, error) {
	return NewLoader(path).Load()
}

// Validate checks fields outside the reactor's own validation.
func (s *Settings) Validate() error {
	if s.ListenAddr == "" {
		return errors.New("config: listen_addr is empty")
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ReactorConfig maps the settings onto a reactor.Config.
func (s *Settings) ReactorConfig(logger *zap.Logger) reactor.Config {
	cfg := reactor.DefaultConfig()
	rs := s.Reactor
	if rs.Threads > 0 {
		cfg.Threads = rs.Threads
	}
	cfg.QueueCapacity = rs.QueueCapacity
	cfg.BatchSize = rs.BatchSize
	cfg.BufferSize = rs.BufferSize
	cfg.MaxConnsPerThread = rs.MaxConnsPerThread
	cfg.MaxEvents = rs.MaxEvents
	cfg.WaitTimeout = rs.WaitTimeout
	cfg.SweepEvery = rs.SweepEvery
	cfg.IdleTimeout = rs.IdleTimeout
	cfg.PinThreads = rs.PinThreads
	cfg.PinStrict = rs.PinStrict
	cfg.PinBaseCPU = rs.PinBaseCPU
	cfg.Logger = logger
	return cfg
}

// ListenerConfig maps the settings onto a tcp.ListenerConfig.
func (s *Settings) ListenerConfig(logger *zap.Logger) tcp.ListenerConfig {
	return tcp.ListenerConfig{
		Addr:      s.ListenAddr,
		Backlog:   s.Listener.Backlog,
		ReusePort: s.Listener.ReusePort,
		NoDelay:   s.Listener.NoDelay,
		AcceptCPU: s.Listener.AcceptCPU,
		Logger:    logger,
	}
}

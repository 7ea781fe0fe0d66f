package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/bingo/go/internal/draw"
	"github.com/mcdev12/bingo/go/internal/draw/gateway"
	"github.com/mcdev12/bingo/go/internal/draw/outbox"
)

// Frontends the drawer can run with.
const (
	FrontendWeb      = "web"
	FrontendTerminal = "terminal"
)

// Config is the full application configuration.
type Config struct {
	Frontend string        `yaml:"frontend"`
	Log      LogConfig     `yaml:"log"`
	Draw     DrawConfig    `yaml:"draw"`
	Gateway  GatewayConfig `yaml:"gateway"`
	NATS     NATSConfig    `yaml:"nats"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// File receives the logs when set. The terminal frontend needs one
	// because tcell owns stdout.
	File string `yaml:"file"`
}

type DrawConfig struct {
	MaxDrawCount         int      `yaml:"max_draw_count"`
	TotalSpins           int      `yaml:"total_spins"`
	InitialDelay         Duration `yaml:"initial_delay"`
	MediumFraction       float64  `yaml:"medium_fraction"`
	MediumStep           Duration `yaml:"medium_step"`
	SlowFraction         float64  `yaml:"slow_fraction"`
	SlowStep             Duration `yaml:"slow_step"`
	LimitNoticeDelay     Duration `yaml:"limit_notice_delay"`
	AutoResetDelay       Duration `yaml:"auto_reset_delay"`
	ExhaustedNoticeDelay Duration `yaml:"exhausted_notice_delay"`
}

type GatewayConfig struct {
	Port           int      `yaml:"port"`
	ConfirmTimeout Duration `yaml:"confirm_timeout"`
	CommandTimeout Duration `yaml:"command_timeout"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// NATSConfig enables the event outbox when URL is set.
type NATSConfig struct {
	URL           string   `yaml:"url"`
	StreamName    string   `yaml:"stream_name"`
	SubjectPrefix string   `yaml:"subject_prefix"`
	BufferSize    int      `yaml:"buffer_size"`
	MaxRetries    int      `yaml:"max_retries"`
	RetryDelay    Duration `yaml:"retry_delay"`
}

// Duration is a time.Duration written as a string like "500ms" in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Default reproduces the stock drawer timings.
func Default() Config {
	dc := draw.DefaultConfig()
	gc := gateway.DefaultConfig()
	oc := outbox.DefaultConfig()
	js := outbox.DefaultJetStreamConfig()

	return Config{
		Frontend: FrontendWeb,
		Log: LogConfig{
			Level: "info",
		},
		Draw: DrawConfig{
			MaxDrawCount:         dc.MaxDrawCount,
			TotalSpins:           dc.Roulette.TotalSpins,
			InitialDelay:         Duration(dc.Roulette.InitialDelay),
			MediumFraction:       dc.Roulette.MediumFraction,
			MediumStep:           Duration(dc.Roulette.MediumStep),
			SlowFraction:         dc.Roulette.SlowFraction,
			SlowStep:             Duration(dc.Roulette.SlowStep),
			LimitNoticeDelay:     Duration(dc.LimitNoticeDelay),
			AutoResetDelay:       Duration(dc.AutoResetDelay),
			ExhaustedNoticeDelay: Duration(dc.ExhaustedNoticeDelay),
		},
		Gateway: GatewayConfig{
			Port:           8080,
			ConfirmTimeout: Duration(gc.ConfirmTimeout),
			CommandTimeout: Duration(gc.CommandTimeout),
			AllowedOrigins: []string{"*"},
		},
		NATS: NATSConfig{
			StreamName:    js.StreamName,
			SubjectPrefix: js.SubjectPrefix,
			BufferSize:    oc.BufferSize,
			MaxRetries:    oc.MaxRetries,
			RetryDelay:    Duration(oc.RetryDelay),
		},
	}
}

// Load reads path on top of the defaults, applies BINGO_* environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	c.Frontend = getEnv("BINGO_FRONTEND", c.Frontend)
	c.Log.Level = getEnv("BINGO_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("BINGO_LOG_FILE", c.Log.File)

	var err error
	if c.Draw.MaxDrawCount, err = getEnvAsInt("BINGO_MAX_DRAW_COUNT", c.Draw.MaxDrawCount); err != nil {
		return err
	}
	if c.Draw.TotalSpins, err = getEnvAsInt("BINGO_TOTAL_SPINS", c.Draw.TotalSpins); err != nil {
		return err
	}
	if c.Gateway.Port, err = getEnvAsInt("BINGO_PORT", c.Gateway.Port); err != nil {
		return err
	}
	if c.Gateway.ConfirmTimeout, err = getEnvAsDuration("BINGO_CONFIRM_TIMEOUT", c.Gateway.ConfirmTimeout); err != nil {
		return err
	}
	if c.Gateway.CommandTimeout, err = getEnvAsDuration("BINGO_COMMAND_TIMEOUT", c.Gateway.CommandTimeout); err != nil {
		return err
	}
	if origins := os.Getenv("BINGO_ALLOWED_ORIGINS"); origins != "" {
		c.Gateway.AllowedOrigins = splitList(origins)
	}

	c.NATS.URL = getEnv("BINGO_NATS_URL", c.NATS.URL)
	c.NATS.StreamName = getEnv("BINGO_NATS_STREAM", c.NATS.StreamName)
	return nil
}

// Validate rejects values the components cannot run with.
func (c Config) Validate() error {
	switch c.Frontend {
	case FrontendWeb, FrontendTerminal:
	default:
		return fmt.Errorf("unknown frontend %q", c.Frontend)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if err := c.DrawSettings().Validate(); err != nil {
		return err
	}
	if c.Frontend == FrontendWeb {
		if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
			return fmt.Errorf("gateway port %d out of range", c.Gateway.Port)
		}
		if c.Gateway.ConfirmTimeout <= 0 {
			return fmt.Errorf("gateway confirm timeout must be positive")
		}
		// a reset command waits out the whole confirmation
		if c.Gateway.CommandTimeout <= c.Gateway.ConfirmTimeout {
			return fmt.Errorf("gateway command timeout %s must exceed confirm timeout %s",
				c.Gateway.CommandTimeout, c.Gateway.ConfirmTimeout)
		}
	}
	if c.NATS.URL != "" {
		if c.NATS.StreamName == "" || c.NATS.SubjectPrefix == "" {
			return fmt.Errorf("nats stream name and subject prefix are required")
		}
		if c.NATS.MaxRetries < 0 {
			return fmt.Errorf("nats max retries must not be negative")
		}
	}
	return nil
}

// LogLevel is the parsed log level. Call after Validate.
func (c Config) LogLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// DrawSettings maps the draw section onto the controller config.
func (c Config) DrawSettings() draw.Config {
	d := c.Draw
	return draw.Config{
		MaxDrawCount: d.MaxDrawCount,
		Roulette: draw.RouletteConfig{
			TotalSpins:     d.TotalSpins,
			InitialDelay:   d.InitialDelay.Std(),
			MediumFraction: d.MediumFraction,
			MediumStep:     d.MediumStep.Std(),
			SlowFraction:   d.SlowFraction,
			SlowStep:       d.SlowStep.Std(),
		},
		LimitNoticeDelay:     d.LimitNoticeDelay.Std(),
		AutoResetDelay:       d.AutoResetDelay.Std(),
		ExhaustedNoticeDelay: d.ExhaustedNoticeDelay.Std(),
	}
}

func (c Config) GatewaySettings() gateway.Config {
	gc := gateway.DefaultConfig()
	gc.ConfirmTimeout = c.Gateway.ConfirmTimeout.Std()
	gc.CommandTimeout = c.Gateway.CommandTimeout.Std()
	gc.AllowedOrigins = c.Gateway.AllowedOrigins
	return gc
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Gateway.Port)
}

// OutboxEnabled reports whether events are published to NATS.
func (c Config) OutboxEnabled() bool {
	return c.NATS.URL != ""
}

func (c Config) OutboxSettings() outbox.Config {
	oc := outbox.DefaultConfig()
	if c.NATS.BufferSize > 0 {
		oc.BufferSize = c.NATS.BufferSize
	}
	oc.MaxRetries = c.NATS.MaxRetries
	if c.NATS.RetryDelay > 0 {
		oc.RetryDelay = c.NATS.RetryDelay.Std()
	}
	return oc
}

func (c Config) JetStreamSettings() outbox.JetStreamConfig {
	js := outbox.DefaultJetStreamConfig()
	js.URL = c.NATS.URL
	js.StreamName = c.NATS.StreamName
	js.SubjectPrefix = c.NATS.SubjectPrefix
	return js
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

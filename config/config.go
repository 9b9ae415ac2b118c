// Package config loads the injected module's settings.
//
// Values come from defaults, then an optional YAML file, then OVERLAY_*
// environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Backend names.
const (
	BackendAuto   = "auto"
	BackendD3D11  = "d3d11"
	BackendOpenGL = "opengl"
)

// FileName is looked up next to the module when OVERLAY_CONFIG is unset.
const FileName = "overlay.yaml"

// Environment variables.
const (
	EnvConfig      = "OVERLAY_CONFIG"
	EnvAddr        = "OVERLAY_ADDR"
	EnvBackend     = "OVERLAY_BACKEND"
	EnvLoadTimeout = "OVERLAY_LOAD_TIMEOUT"
	EnvReconnect   = "OVERLAY_RECONNECT"
	EnvLogFile     = "OVERLAY_LOG"
	EnvLogLevel    = "OVERLAY_LOG_LEVEL"
)

type Config struct {
	// Addr is the loopback address of the command channel.
	Addr string `yaml:"addr"`
	// Backend selects the graphics API to hook.
	Backend string `yaml:"backend"`

	PollInterval    time.Duration `yaml:"poll_interval"`
	PollMaxInterval time.Duration `yaml:"poll_max_interval"`
	// LoadTimeout bounds the wait for the graphics library. Zero waits forever.
	LoadTimeout time.Duration `yaml:"load_timeout"`

	// Reconnect accepts a new controller after the current one leaves.
	Reconnect bool `yaml:"reconnect"`

	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the built in settings.
func Default() Config {
	return Config{
		Addr:            "127.0.0.1:54321",
		Backend:         BackendAuto,
		PollInterval:    100 * time.Millisecond,
		PollMaxInterval: 2 * time.Second,
		LoadTimeout:     2 * time.Minute,
		LogLevel:        "info",
	}
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(string) (string, bool)

// Load builds the configuration for a module living in dir.
func Load(dir string) (Config, error) {
	return load(dir, os.LookupEnv)
}

func load(dir string, env LookupFunc) (Config, error) {
	c := Default()

	if p, ok := env(EnvConfig); ok && p != "" {
		if err := c.mergeFile(p); err != nil {
			return c, err
		}
	} else if dir != "" {
		p := dir + string(os.PathSeparator) + FileName
		if _, err := os.Stat(p); err == nil {
			if err := c.mergeFile(p); err != nil {
				return c, err
			}
		}
	}

	if err := c.mergeEnv(env); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "config: read")
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return errors.Wrapf(err, "config: parse %s", path)
	}
	return nil
}

func (c *Config) mergeEnv(env LookupFunc) error {
	if v, ok := env(EnvAddr); ok {
		c.Addr = v
	}
	if v, ok := env(EnvBackend); ok {
		c.Backend = strings.ToLower(v)
	}
	if v, ok := env(EnvLoadTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "config: %s", EnvLoadTimeout)
		}
		c.LoadTimeout = d
	}
	if v, ok := env(EnvReconnect); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "config: %s", EnvReconnect)
		}
		c.Reconnect = b
	}
	if v, ok := env(EnvLogFile); ok {
		c.LogFile = v
	}
	if v, ok := env(EnvLogLevel); ok {
		c.LogLevel = v
	}
	return nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendD3D11, BackendOpenGL:
	default:
		return errors.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Addr == "" {
		return errors.New("config: empty addr")
	}
	if c.PollInterval <= 0 {
		return errors.New("config: poll_interval must be positive")
	}
	if c.PollMaxInterval < c.PollInterval {
		return errors.New("config: poll_max_interval is below poll_interval")
	}
	if c.LoadTimeout < 0 {
		return errors.New("config: negative load_timeout")
	}
	return nil
}

// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "wsconsole/internal/log"
)

// DefaultConfigFile is searched for in the working directory when
// LoadConfig is called with an empty path.
const DefaultConfigFile = "wsconsole.yaml"

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty, it looks for DefaultConfigFile in the working directory and falls
// back to built-in defaults when there is none. Environment overrides are
// applied after the file, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err != nil {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration. The client URL is only required when
// instrumentation is active.
func (c *Config) Validate() error {
	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("log_level %q is not a known level", c.LogLevel)
	}

	switch c.Client.Mode {
	case ModeDevelopment, ModeProduction, ModeTest:
	default:
		return fmt.Errorf("client.mode %q must be one of %s, %s, %s",
			c.Client.Mode, ModeDevelopment, ModeProduction, ModeTest)
	}

	if c.Client.QueueSize <= 0 || c.Client.QueueSize > MaxQueueSize {
		return fmt.Errorf("client.queue_size must be between 1 and %d, got %d", MaxQueueSize, c.Client.QueueSize)
	}
	if c.Client.HandshakeTimeout < 0 {
		return fmt.Errorf("client.handshake_timeout must not be negative")
	}

	switch c.Client.LocalConsole {
	case LocalConsoleStd, LocalConsoleZap, LocalConsoleLogrus:
	default:
		return fmt.Errorf("client.local_console %q must be one of %s, %s, %s",
			c.Client.LocalConsole, LocalConsoleStd, LocalConsoleZap, LocalConsoleLogrus)
	}

	if c.Client.DebugServerURL != "" {
		u, err := url.Parse(c.Client.DebugServerURL)
		if err != nil {
			return fmt.Errorf("client.debug_server_url: %w", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return fmt.Errorf("client.debug_server_url %q must use ws or wss", c.Client.DebugServerURL)
		}
	}

	if !strings.HasPrefix(c.Listener.Path, "/") {
		return fmt.Errorf("listener.path %q must start with /", c.Listener.Path)
	}

	return nil
}

// applyEnvOverrides applies WSCONSOLE_* variables on top of file values.
// Unparseable values are ignored.
func (cfg *Config) applyEnvOverrides() {
	// WSCONSOLE_DEBUG
	if val, ok := os.LookupEnv("WSCONSOLE_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	// WSCONSOLE_LOG_LEVEL
	if val, ok := os.LookupEnv("WSCONSOLE_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		applog.Debugf("configuration: Overriding log_level from env: %s", val)
	}

	// WSCONSOLE_{...}
	// These are specific to the debug client.

	// WSCONSOLE_MODE
	if val, ok := os.LookupEnv("WSCONSOLE_MODE"); ok {
		cfg.Client.Mode = strings.ToLower(val)
		applog.Debugf("configuration: Overriding client.mode from env: %s", val)
	}
	// WSCONSOLE_DEBUG_SERVER_URL
	if val, ok := os.LookupEnv("WSCONSOLE_DEBUG_SERVER_URL"); ok {
		cfg.Client.DebugServerURL = val
		applog.Debugf("configuration: Overriding client.debug_server_url from env: %s", val)
	}
	// WSCONSOLE_ENABLE_IN_PRODUCTION
	if val, ok := os.LookupEnv("WSCONSOLE_ENABLE_IN_PRODUCTION"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Client.EnableInProduction = bVal
			applog.Debugf("configuration: Overriding client.enable_in_production from env: %v", bVal)
		}
	}
	// WSCONSOLE_ENABLE_CONSOLE_OVERRIDES
	if val, ok := os.LookupEnv("WSCONSOLE_ENABLE_CONSOLE_OVERRIDES"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Client.EnableConsoleOverrides = bVal
			applog.Debugf("configuration: Overriding client.enable_console_overrides from env: %v", bVal)
		}
	}
	// WSCONSOLE_HANDSHAKE_TIMEOUT
	if val, ok := os.LookupEnv("WSCONSOLE_HANDSHAKE_TIMEOUT"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Client.HandshakeTimeout = dur
			applog.Debugf("configuration: Overriding client.handshake_timeout from env: %s", dur)
		}
	}
	// WSCONSOLE_LOCAL_CONSOLE
	if val, ok := os.LookupEnv("WSCONSOLE_LOCAL_CONSOLE"); ok {
		cfg.Client.LocalConsole = strings.ToLower(val)
		applog.Debugf("configuration: Overriding client.local_console from env: %s", val)
	}

	// WSCONSOLE_LISTENER_ADDR
	if val, ok := os.LookupEnv("WSCONSOLE_LISTENER_ADDR"); ok {
		cfg.Listener.Addr = val
		applog.Debugf("configuration: Overriding listener.addr from env: %s", val)
	}
}

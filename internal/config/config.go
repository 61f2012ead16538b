package config

import "time"

// Defaults for the debug client and listener.
const (
	DefaultLogLevel               = "info"
	DefaultMode                   = ModeProduction // Instrumentation is off unless asked for
	DefaultEnableInProduction     = false
	DefaultEnableConsoleOverrides = true
	DefaultQueueSize              = 256
	DefaultHandshakeTimeout       = 5 * time.Second
	DefaultListenerAddr           = "127.0.0.1:8099"
	DefaultListenerPath           = "/"
	DefaultLocalConsole           = LocalConsoleStd

	// MaxQueueSize caps the outbound buffer of a single client.
	MaxQueueSize = 1 << 16
)

// Modes understood by the activation gate.
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
	ModeTest        = "test"
)

// Local consoles the instrumented console can wrap.
const (
	LocalConsoleStd    = "std"
	LocalConsoleZap    = "zap"
	LocalConsoleLogrus = "logrus"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug    bool           `yaml:"debug"`     // Enable debug logging for the tool itself.
	LogLevel string         `yaml:"log_level"` // Local logging level ("debug", "info", "warn", "error").
	Client   ClientConfig   `yaml:"client"`    // Debug client settings.
	Listener ListenerConfig `yaml:"listener"`  // Debug listener settings.
}

// ClientConfig holds construction-time options for the debug client.
type ClientConfig struct {
	DebugServerURL         string        `yaml:"debug_server_url"`         // Listener endpoint, e.g. ws://127.0.0.1:8099/.
	EnableInProduction     bool          `yaml:"enable_in_production"`     // Bypass the mode gate.
	EnableConsoleOverrides bool          `yaml:"enable_console_overrides"` // Install the instrumented console.
	Mode                   string        `yaml:"mode"`                     // "development", "production" or "test".
	QueueSize              int           `yaml:"queue_size"`               // Outbound buffer before records are dropped.
	HandshakeTimeout       time.Duration `yaml:"handshake_timeout"`        // WebSocket opening handshake timeout.
	LocalConsole           string        `yaml:"local_console"`            // "std", "zap" or "logrus".
}

// ListenerConfig holds settings for the bundled debug listener.
type ListenerConfig struct {
	Addr string `yaml:"addr"` // host:port to bind.
	Path string `yaml:"path"` // HTTP path that accepts WebSocket upgrades.
}

// Active reports whether instrumentation should run for this config.
func (c ClientConfig) Active() bool {
	return c.Mode == ModeDevelopment || c.EnableInProduction
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: DefaultLogLevel,
		Client: ClientConfig{
			EnableInProduction:     DefaultEnableInProduction,
			EnableConsoleOverrides: DefaultEnableConsoleOverrides,
			Mode:                   DefaultMode,
			QueueSize:              DefaultQueueSize,
			HandshakeTimeout:       DefaultHandshakeTimeout,
			LocalConsole:           DefaultLocalConsole,
		},
		Listener: ListenerConfig{
			Addr: DefaultListenerAddr,
			Path: DefaultListenerPath,
		},
	}
}

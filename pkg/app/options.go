package app

import (
	"time"

	"github.com/luizaranda/curling/pkg/log"
)

// Timeouts holds the server side timeouts of an Application.
type Timeouts struct {
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
}

type Config struct {
	ServiceName     string
	LogLevel        log.Level
	LogOptions      []log.Option
	ServerTimeouts  Timeouts
	EnableProfiling bool
}

// AppOptFunc allows defining custom functions for configuring an Application.
type AppOptFunc func(*Config)

// WithServiceName sets the name reported to the telemetry providers.
// Default is the value of OTEL_SERVICE_NAME, or "curling".
func WithServiceName(name string) AppOptFunc {
	return func(config *Config) {
		config.ServiceName = name
	}
}

// WithLogLevel sets the level at which the application logger will log.
// It can be changed at runtime through /debug/log/level.
func WithLogLevel(level log.Level) AppOptFunc {
	return func(config *Config) {
		config.LogLevel = level
	}
}

// WithLogOptions sets the options to the application logger.
func WithLogOptions(opts ...log.Option) AppOptFunc {
	return func(config *Config) {
		config.LogOptions = opts
	}
}

// WithTimeouts sets the different timeouts that the web server uses.
//
// Default behavior is to not have timeouts for incoming requests.
func WithTimeouts(timeouts Timeouts) AppOptFunc {
	return func(config *Config) {
		config.ServerTimeouts = timeouts
	}
}

// WithEnableProfiling mounts the pprof and expvar handlers under /debug.
func WithEnableProfiling() AppOptFunc {
	return func(config *Config) {
		config.EnableProfiling = true
	}
}

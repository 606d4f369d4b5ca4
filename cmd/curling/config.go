package main

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"

	"github.com/luizaranda/curling/pkg/curling"
)

const _envPrefix = "CURLING"

// config holds the defaults read from CURLING_* variables. Flags override
// every field.
type config struct {
	UserAgent      string        `envconfig:"USER_AGENT"`
	CookieJar      string        `envconfig:"COOKIE_JAR" default:"cookies.txt" validate:"required"`
	Timeout        time.Duration `envconfig:"TIMEOUT" validate:"gte=0"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" validate:"gte=0"`
	Retry          int           `envconfig:"RETRY" default:"0" validate:"gte=0,lte=100"`
	RetryDelay     time.Duration `envconfig:"RETRY_DELAY" default:"1s" validate:"gte=0"`
	Proxy          string        `envconfig:"PROXY"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"warn" validate:"oneof=debug info warn error"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := envconfig.Process(_envPrefix, &cfg); err != nil {
		return config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c config) options() []curling.Option {
	opts := []curling.Option{curling.WithCookiePath(c.CookieJar)}
	if c.UserAgent != "" {
		opts = append(opts, curling.WithUserAgent(c.UserAgent))
	}
	if c.Timeout > 0 {
		opts = append(opts, curling.WithTimeout(c.Timeout))
	}
	return opts
}

package httpx

import (
	"strings"
	"time"

	"github.com/nikmy/sqlrelay/pkg/errors"
)

type Config struct {
	// Endpoint is the base URL of the relay, e.g. http://localhost:8080.
	Endpoint string `yaml:"endpoint"`

	// Timeout bounds unary calls without a context deadline.
	Timeout time.Duration `yaml:"timeout"`

	MaxConns int `yaml:"maxConns"`
}

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxConns = 16
)

func (c Config) withDefaults() Config {
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxConns <= 0 {
		c.MaxConns = defaultMaxConns
	}
	return c
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return errors.Errorf("endpoint %q is not an http url", c.Endpoint)
	}
	return nil
}

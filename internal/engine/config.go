package engine

import (
	"time"

	"github.com/nikmy/sqlrelay/pkg/errors"
)

type Config struct {
	// Databases maps the names clients begin transactions on to sqlite DSNs.
	Databases map[string]string `yaml:"databases"`

	BatchRows int `yaml:"batchRows"`
	// MaxBatchRows caps the batch size a client may hint for a query.
	MaxBatchRows int `yaml:"maxBatchRows"`

	DefaultTimeout time.Duration `yaml:"defaultTimeout"`
	MaxTimeout     time.Duration `yaml:"maxTimeout"`

	// ReapInterval is how often expired transactions are rolled back.
	ReapInterval time.Duration `yaml:"reapInterval"`

	// ExpiredRetention is how long ids of reaped transactions are
	// remembered, so that late calls are told "expired" and not "not found".
	ExpiredRetention time.Duration `yaml:"expiredRetention"`
}

const (
	defaultBatchRows        = 100
	defaultMaxBatchRows     = 10000
	defaultTimeout          = 30 * time.Second
	defaultMaxTimeout       = 10 * time.Minute
	defaultReapInterval     = time.Second
	defaultExpiredRetention = 10 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.BatchRows <= 0 {
		c.BatchRows = defaultBatchRows
	}
	if c.MaxBatchRows <= 0 {
		c.MaxBatchRows = defaultMaxBatchRows
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = defaultTimeout
	}
	if c.MaxTimeout <= 0 {
		c.MaxTimeout = defaultMaxTimeout
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = defaultReapInterval
	}
	if c.ExpiredRetention <= 0 {
		c.ExpiredRetention = defaultExpiredRetention
	}
	return c
}

// Validate expects a config with defaults applied.
func (c Config) Validate() error {
	if len(c.Databases) == 0 {
		return errors.Error("no databases configured")
	}
	for name, dsn := range c.Databases {
		if name == "" || dsn == "" {
			return errors.Errorf("database %q has an empty name or dsn", name)
		}
	}
	if c.DefaultTimeout > c.MaxTimeout {
		return errors.Errorf("default timeout %s exceeds max timeout %s", c.DefaultTimeout, c.MaxTimeout)
	}
	if c.BatchRows > c.MaxBatchRows {
		return errors.Errorf("batch rows %d exceed max batch rows %d", c.BatchRows, c.MaxBatchRows)
	}
	return nil
}

// timeout picks the effective transaction timeout for a begin request.
func (c Config) timeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return c.DefaultTimeout
	}
	if requested > c.MaxTimeout {
		return c.MaxTimeout
	}
	return requested
}

// batchRows picks the effective batch size for a query.
func (c Config) batchRows(hinted int32) int {
	if hinted <= 0 {
		return c.BatchRows
	}
	return min(int(hinted), c.MaxBatchRows)
}

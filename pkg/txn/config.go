package txn

import (
	"time"

	"github.com/nikmy/sqlrelay/pkg/codec"
	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/results"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

// Config holds client defaults for new sessions.
type Config struct {
	Database  string        `yaml:"database"`
	LockMode  wire.LockMode `yaml:"lockMode"`
	Timeout   time.Duration `yaml:"timeout"`
	BatchSize int           `yaml:"batchSize"`
	Policy    codec.Policy  `yaml:"policy"`
}

func DefaultConfig() Config {
	return Config{
		Database:  "main",
		LockMode:  wire.LockDeferred,
		BatchSize: results.DefaultBatchSize,
		Policy:    codec.DefaultPolicy(),
	}
}

func (c Config) Validate() error {
	if !c.LockMode.Valid() {
		return &wire.UnknownValueError{Kind: "lock mode", Value: string(c.LockMode)}
	}
	if c.Timeout < 0 {
		return errors.Errorf("negative transaction timeout %s", c.Timeout)
	}
	return errors.WrapFail(c.Policy.Validate(), "validate codec policy")
}

package pubsub

import "time"

type Config struct {
	// Brokers is empty when lifecycle events are not published.
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	BatchTimeout time.Duration `yaml:"batch_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}

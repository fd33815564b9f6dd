package api

import "time"

type Config struct {
	Proxy  ProxyConfig  `yaml:"proxy"`
	HTTP   HTTPConfig   `yaml:"http"`
	Limits LimitsConfig `yaml:"limits"`
}

// ProxyConfig tells the gateway which peers may set the client address.
type ProxyConfig struct {
	Header  string   `yaml:"header"`
	Trusted []string `yaml:"trusted"`
}

type HTTPConfig struct {
	Addr        string        `yaml:"addr"`
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout also bounds how long a query may stream its frames.
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// LimitsConfig caps request documents, in bytes, and concurrent
// connections. Zero values keep the fiber defaults.
type LimitsConfig struct {
	BodySize    int `yaml:"body_size"`
	Connections int `yaml:"connections"`
}

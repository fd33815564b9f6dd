package main

import (
	"flag"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nikmy/sqlrelay/internal/api"
	"github.com/nikmy/sqlrelay/internal/engine"
	"github.com/nikmy/sqlrelay/internal/pubsub"
	"github.com/nikmy/sqlrelay/pkg/environment"
	"github.com/nikmy/sqlrelay/pkg/errors"
)

type Config struct {
	Environment environment.Env `yaml:"Environment"`
	API         api.Config      `yaml:"API"`
	Engine      engine.Config   `yaml:"Engine"`
	Events      pubsub.Config   `yaml:"Events"`
}

func loadConfig() (*Config, error) {
	configPath := flag.String("config", "config.yaml", "path to yaml config")
	rawEnv := flag.String("env", "", "environment (dev, prod)")
	flag.Parse()

	path, err := filepath.Abs(*configPath)
	if err != nil {
		return nil, errors.WrapFail(err, "build path to config")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapFailf(err, "read %q", path)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, errors.WrapFail(err, "parse yaml")
	}

	if *rawEnv != "" {
		cfg.Environment = environment.FromString(*rawEnv)
	}

	if cfg.API.HTTP.Addr == "" {
		cfg.API.HTTP.Addr = ":8080"
	}

	return &cfg, nil
}

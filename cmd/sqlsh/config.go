package main

import (
	"flag"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nikmy/sqlrelay/pkg/environment"
	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/transport/httpx"
	"github.com/nikmy/sqlrelay/pkg/txn"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

type Config struct {
	Environment environment.Env `yaml:"Environment"`
	Transport   httpx.Config    `yaml:"Transport"`
	Session     txn.Config      `yaml:"Session"`
}

type flags struct {
	dryRun     bool
	statements []string
}

func loadConfig() (*Config, *flags, error) {
	cfg := Config{
		Environment: environment.Production,
		Transport:   httpx.Config{Endpoint: "http://localhost:8080"},
		Session:     txn.DefaultConfig(),
	}

	configPath := flag.String("config", "", "path to yaml config")
	rawEnv := flag.String("env", "", "environment (dev, prod)")
	endpoint := flag.String("endpoint", "", "relay base url")
	database := flag.String("db", "", "database to begin the transaction on")
	lockMode := flag.String("lock", "", "lock mode (deferred, immediate, exclusive)")
	timeout := flag.Duration("timeout", 0, "transaction timeout")
	dryRun := flag.Bool("dry-run", false, "roll back instead of committing")
	flag.Parse()

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, nil, errors.WrapFailf(err, "read %q", *configPath)
		}

		err = yaml.Unmarshal(data, &cfg)
		if err != nil {
			return nil, nil, errors.WrapFail(err, "parse yaml")
		}
	}

	if *rawEnv != "" {
		cfg.Environment = environment.FromString(*rawEnv)
	}
	if *endpoint != "" {
		cfg.Transport.Endpoint = *endpoint
	}
	if *database != "" {
		cfg.Session.Database = *database
	}
	if *lockMode != "" {
		mode, ok := wire.ParseLockMode(*lockMode)
		if !ok {
			return nil, nil, &wire.UnknownValueError{Kind: "lock mode", Value: *lockMode}
		}
		cfg.Session.LockMode = mode
	}
	if *timeout > time.Duration(0) {
		cfg.Session.Timeout = *timeout
	}

	if flag.NArg() == 0 {
		return nil, nil, errors.Error("no statements given")
	}

	return &cfg, &flags{dryRun: *dryRun, statements: flag.Args()}, nil
}

package config

import (
	"fmt"

	env "github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	ClientConfig
	StorageConfig
	DemoConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Client
	Storage
	Demo
}

// New loads configuration from the environment.
func New() (Config, error) {
	var cfg mainConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Client.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

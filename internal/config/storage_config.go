package config

import (
	"fmt"
	"path/filepath"
)

// StorageKind selects the durable token backend.
type StorageKind string

const (
	StorageFile   StorageKind = "file"
	StorageRedis  StorageKind = "redis"
	StorageMemory StorageKind = "memory"
)

type StorageConfig interface {
	GetTokenStorage() StorageKind
	GetTokenFile() string
	GetRedisURL() string
	GetRedisPrefix() string
	GetEncryptionKey() string
}

type Storage struct {
	Kind          StorageKind `env:"TOKEN_STORAGE" envDefault:"file"`
	File          string      `env:"TOKEN_FILE"`
	RedisURL      string      `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix   string      `env:"REDIS_PREFIX" envDefault:"shop:"`
	EncryptionKey string      `env:"TOKEN_ENCRYPTION_KEY"`
}

func (s Storage) GetTokenStorage() StorageKind {
	return s.Kind
}

func (s Storage) GetRedisURL() string {
	return s.RedisURL
}

func (s Storage) GetRedisPrefix() string {
	return s.RedisPrefix
}

// GetEncryptionKey returns the hex encoded at-rest key, or "" for plaintext.
func (s Storage) GetEncryptionKey() string {
	return s.EncryptionKey
}

func (s Storage) validate() error {
	switch s.Kind {
	case StorageFile, StorageRedis, StorageMemory:
		return nil
	default:
		return fmt.Errorf("TOKEN_STORAGE %q must be one of file, redis, memory", s.Kind)
	}
}

// GetTokenFile defaults to tokens.json inside the data folder.
func (c mainConfig) GetTokenFile() string {
	if c.Storage.File != "" {
		return c.Storage.File
	}
	return filepath.Join(c.DataFolder, "tokens.json")
}

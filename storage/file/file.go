// Package file is a durable storage.KV that keeps all keys in one JSON
// document on disk. Every write replaces the document through a temp file
// and a rename, so a multi-key SetMany is never observable half-applied.
package file

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/storage"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	keySize   = 32
	fileMode  = 0o600
)

var _ storage.KV = (*Store)(nil)

// Store persists keys to a single file.
type Store struct {
	path string
	key  *[keySize]byte // nil means plaintext
	lock sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithEncryptionKey seals the document with NaCl secretbox.
func WithEncryptionKey(key *[keySize]byte) Option {
	return func(s *Store) {
		s.key = key
	}
}

// ParseKey decodes a hex encoded 32 byte secretbox key.
func ParseKey(hexKey string) (*[keySize]byte, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, shoperrors.Wrapf(shoperrors.ErrInvalidKey, "decode hex: %v", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("key is %d bytes, want %d: %w", len(raw), keySize, shoperrors.ErrInvalidKey)
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

// New creates a Store backed by path. The parent directory is created if
// needed; the file itself is created on first write.
func New(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create storage folder: %w", err)
	}
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *Store) SetMany(_ context.Context, entries map[string]string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range entries {
		values[k] = v
	}
	return s.save(values)
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := values[k]; ok {
			delete(values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(values)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	if s.key != nil {
		if len(data) < nonceSize {
			return nil, fmt.Errorf("read %s: sealed document too short", s.path)
		}
		var nonce [nonceSize]byte
		copy(nonce[:], data[:nonceSize])
		opened, ok := secretbox.Open(nil, data[nonceSize:], &nonce, s.key)
		if !ok {
			return nil, fmt.Errorf("read %s: %w", s.path, shoperrors.ErrInvalidKey)
		}
		data = opened
	}

	values := make(map[string]string)
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode values: %w", err)
	}

	if s.key != nil {
		var nonce [nonceSize]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return fmt.Errorf("generate nonce: %w", err)
		}
		data = secretbox.Seal(nonce[:], data, &nonce, s.key)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

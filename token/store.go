package token

import (
	"context"
	"fmt"

	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/storage"
	"github.com/jrsteele09/go-shop-client/users"
)

// Storage keys shared with the browser client.
const (
	AccessTokenKey  = "dt_access_token"
	RefreshTokenKey = "dt_refresh_token"
	SelectedRoleKey = "selected_role"
)

// Store is the storage facade for the token pair (durable) and the selected
// role (ephemeral). It performs no validation beyond refusing partial pairs.
type Store struct {
	durable   storage.KV
	ephemeral storage.KV
}

// NewStore creates a Store. durable should survive restarts; ephemeral should
// not.
func NewStore(durable, ephemeral storage.KV) *Store {
	return &Store{
		durable:   durable,
		ephemeral: ephemeral,
	}
}

// Save writes both tokens as one SetMany.
func (s *Store) Save(ctx context.Context, pair Pair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	if err := s.durable.SetMany(ctx, map[string]string{
		AccessTokenKey:  pair.AccessToken,
		RefreshTokenKey: pair.RefreshToken,
	}); err != nil {
		return fmt.Errorf("save token pair: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token or ErrNoToken.
func (s *Store) AccessToken(ctx context.Context) (string, error) {
	return s.get(ctx, s.durable, AccessTokenKey)
}

// RefreshToken returns the stored refresh token or ErrNoToken.
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	return s.get(ctx, s.durable, RefreshTokenKey)
}

// Pair returns both stored tokens, or ErrNoToken if either is missing.
func (s *Store) Pair(ctx context.Context) (Pair, error) {
	access, err := s.AccessToken(ctx)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.RefreshToken(ctx)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

// Clear removes both tokens and the selected role. Clearing an empty store is
// not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.durable.Delete(ctx, AccessTokenKey, RefreshTokenKey); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return s.ClearSelectedRole(ctx)
}

// SelectedRole returns the role picked for this session, or "" if none.
func (s *Store) SelectedRole(ctx context.Context) (users.Role, error) {
	v, err := s.get(ctx, s.ephemeral, SelectedRoleKey)
	if shoperrors.Is(err, shoperrors.ErrNoToken) {
		return "", nil
	}
	return users.Role(v), err
}

func (s *Store) SetSelectedRole(ctx context.Context, role users.Role) error {
	if err := s.ephemeral.SetMany(ctx, map[string]string{SelectedRoleKey: string(role)}); err != nil {
		return fmt.Errorf("save selected role: %w", err)
	}
	return nil
}

func (s *Store) ClearSelectedRole(ctx context.Context) error {
	if err := s.ephemeral.Delete(ctx, SelectedRoleKey); err != nil {
		return fmt.Errorf("clear selected role: %w", err)
	}
	return nil
}

func (s *Store) get(ctx context.Context, kv storage.KV, key string) (string, error) {
	v, ok, err := kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || v == "" {
		return "", shoperrors.ErrNoToken
	}
	return v, nil
}

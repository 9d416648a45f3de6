package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/go-shop-client/dashboard"
	"github.com/jrsteele09/go-shop-client/internal/config"
	shoperrors "github.com/jrsteele09/go-shop-client/internal/errors"
	"github.com/jrsteele09/go-shop-client/sessions"
	"github.com/jrsteele09/go-shop-client/storage"
	"github.com/jrsteele09/go-shop-client/storage/file"
	"github.com/jrsteele09/go-shop-client/storage/memory"
	"github.com/jrsteele09/go-shop-client/storage/redisstore"
	"github.com/jrsteele09/go-shop-client/token"
	"github.com/jrsteele09/go-shop-client/users"
)

// session is the wiring one command invocation works with.
type session struct {
	manager *sessions.Manager
	policy  *dashboard.Policy
	close   func() error
}

// openStorage returns the durable token backend selected by TOKEN_STORAGE.
func openStorage(ctx context.Context, cfg config.Config) (storage.KV, func() error, error) {
	noop := func() error { return nil }
	switch cfg.GetTokenStorage() {
	case config.StorageMemory:
		return memory.New(), noop, nil
	case config.StorageRedis:
		client, err := redisstore.NewClient(ctx, cfg.GetRedisURL())
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewWithPrefix(client, cfg.GetRedisPrefix()), client.Close, nil
	default:
		var opts []file.Option
		if hexKey := cfg.GetEncryptionKey(); hexKey != "" {
			key, err := file.ParseKey(hexKey)
			if err != nil {
				return nil, nil, err
			}
			opts = append(opts, file.WithEncryptionKey(key))
		}
		store, err := file.New(cfg.GetTokenFile(), opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	}
}

// openSession builds the session manager. A CLI run is a single process, so
// the selected role is kept in durable storage next to the tokens.
func (c *cli) openSession(ctx context.Context, out io.Writer) (*session, error) {
	kv, closeFn, err := openStorage(ctx, c.cfg)
	if err != nil {
		return nil, fmt.Errorf("open token storage: %w", err)
	}
	store := token.NewStore(kv, kv)

	manager, err := sessions.New(c.cfg.GetAPIURL(), store,
		sessions.WithLogger(c.logger),
		sessions.WithTimeout(c.cfg.GetRequestTimeout()),
		sessions.WithNavigator(sessions.NavigatorFunc(func(_ context.Context, route string) {
			fmt.Fprintf(out, "-> %s\n", route)
		})),
	)
	if err != nil {
		_ = closeFn()
		return nil, err
	}
	return &session{
		manager: manager,
		policy:  dashboard.NewPolicy(store, dashboard.WithLogger(c.logger)),
		close:   closeFn,
	}, nil
}

// restore reloads the stored session and fails when nobody is signed in.
func (s *session) restore(ctx context.Context) (*users.User, error) {
	if err := s.manager.Initialize(ctx); err != nil {
		return nil, err
	}
	user := s.manager.CurrentUser()
	if user == nil {
		return nil, fmt.Errorf("%w: run shopctl login first", shoperrors.ErrNotAuthenticated)
	}
	return user, nil
}

package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/Cici-YuMao/AIris/logging"
	"github.com/Cici-YuMao/AIris/store"
)

// openStore opens the configured driver and, when enabled, creates its
// schema.
func openStore(ctx context.Context, cfg store.Config) (store.Store, error) {
	s, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s store", cfg.Driver)
	}
	if cfg.AutoMigrate {
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}
	logging.Info().Str("driver", cfg.Driver).Msg("store ready")
	return s, nil
}

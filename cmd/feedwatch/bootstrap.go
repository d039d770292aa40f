package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	config "github.com/NordCoder/Feedwatch/internal/config/feedwatch"
	"github.com/NordCoder/Feedwatch/internal/domain/activity"
	"github.com/NordCoder/Feedwatch/internal/domain/state"
	"github.com/NordCoder/Feedwatch/internal/obs"
	"github.com/NordCoder/Feedwatch/internal/repository/file"
	pg "github.com/NordCoder/Feedwatch/internal/repository/postgres"
	"github.com/NordCoder/Feedwatch/internal/repository/sqlite"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path, cmd.Flags())
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lc := cfg.Log
	lc.App = "feedwatch"
	lc.Ver = version
	return obs.NewLogger(lc)
}

// stateBackend is an opened state.Store plus what the process needs to
// probe and release it.
type stateBackend struct {
	state.Store
	health func(context.Context) error
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config, l *zap.Logger) (*stateBackend, error) {
	switch cfg.State.Backend {
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.State.SQLitePath)
		if err != nil {
			return nil, err
		}
		l.Info("state backend", zap.String("backend", "sqlite"), zap.String("path", cfg.State.SQLitePath))
		return &stateBackend{Store: s, close: func() { _ = s.Close() }}, nil

	case config.BackendPostgres:
		db, err := pg.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		l.Info("state backend", zap.String("backend", "postgres"))
		return &stateBackend{Store: pg.NewStateRepo(db), health: db.Ping, close: db.Close}, nil

	default:
		s, err := file.New(cfg.State.Dir)
		if err != nil {
			return nil, err
		}
		l.Info("state backend", zap.String("backend", "file"), zap.String("dir", cfg.State.Dir))
		return &stateBackend{Store: s, close: func() {}}, nil
	}
}

func fingerprintFor(cfg *config.Config, t activity.Target) (state.Fingerprint, error) {
	return state.NewFingerprint(state.Identity{
		Target:  t,
		Auth:    cfg.GitHub.Token,
		BaseURL: cfg.GitHub.BaseURL,
	})
}

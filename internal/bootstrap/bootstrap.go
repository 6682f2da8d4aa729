// Package bootstrap assembles chat clients from configuration for the
// binaries under cmd.
package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/machinebox/graphql"

	mindchat "github.com/set-night/mindchat"
	"github.com/set-night/mindchat/internal/config"
	"github.com/set-night/mindchat/internal/domain"
	"github.com/set-night/mindchat/internal/hasura"
	"github.com/set-night/mindchat/internal/identity"
	"github.com/set-night/mindchat/internal/repository"
	"github.com/set-night/mindchat/internal/service"
)

// SetupLogging installs the default JSON logger on stderr. Unknown levels
// fall back to info.
func SetupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		l = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
	slog.SetDefault(logger)
}

// Factory builds one independent chat client per call.
type Factory struct {
	cfg        *config.Config
	httpClient *http.Client
	gql        *graphql.Client
	store      *repository.ChatStore
}

// NewFactory prepares the shared resources of the configured data backend.
// The returned close function releases them.
func NewFactory(ctx context.Context, cfg *config.Config) (*Factory, func(), error) {
	f := &Factory{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
	}

	switch cfg.DataBackend {
	case config.BackendPostgres:
		pool, err := repository.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		migrationsFS, err := fs.Sub(mindchat.MigrationsFS, "migrations")
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("load embedded migrations: %w", err)
		}
		if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
			pool.Close()
			return nil, nil, err
		}
		replier := service.NewOpenRouter(cfg.OpenRouterKey, cfg.OpenRouterURL, cfg.OpenRouterModel, f.httpClient)
		f.store = repository.NewChatStore(pool, replier, config.ReplyContextMessages)
		slog.Info("using postgres data backend")
		return f, pool.Close, nil
	default:
		f.gql = hasura.NewClient(cfg.GraphQLURL(), f.httpClient)
		slog.Info("using graphql data backend", "endpoint", cfg.GraphQLURL())
		return f, func() {}, nil
	}
}

// NewClient returns a Sequencer with its own identity session, and the
// function that stops the session's refresh timer.
func (f *Factory) NewClient() (*service.Sequencer, func()) {
	auth := identity.NewClient(f.cfg.AuthURL(), f.httpClient)

	var backend domain.ChatBackend
	if f.store != nil {
		backend = f.store
	} else {
		backend = hasura.NewBackend(f.gql, auth.AccessToken)
	}
	return service.NewSequencer(auth, backend), auth.Close
}

package textverse

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/textverse/textverse/pkg/store"
	"github.com/textverse/textverse/pkg/store/local"
	"github.com/textverse/textverse/pkg/store/remote"
)

// Config carries everything the application needs to run. Fields mirror the
// command-line flags in Parse; the SurrealDB settings are optional and when
// the URL is empty the app runs against the local SQLite file only.
type Config struct {
	// DBPath is the SQLite file backing the local, unauthenticated record
	// sets.
	DBPath string
	// SurrealDBURL is the WebSocket endpoint of the remote backend, e.g.
	// ws://localhost:8000/rpc. Empty disables the remote store.
	SurrealDBURL  string
	SurrealDBNS   string
	SurrealDBDB   string
	SurrealDBUser string
	SurrealDBPass string
	// ServerPort is the HTTP listen port for the run command.
	ServerPort string
}

// App wires the stores and the coordinator together and owns their
// lifecycles.
type App struct {
	config      *Config
	coordinator *Coordinator
	localStore  *local.Store
	remoteStore store.Store
	log         zerolog.Logger
}

// NewApp opens the local store, connects to SurrealDB when configured, and
// builds the coordinator on top. The caller must Close the app when done.
func NewApp(ctx context.Context, config *Config) (*App, error) {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	localStore, err := local.New(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	opts := []Option{WithLogger(log)}
	var remoteStore store.Store
	if config.SurrealDBURL != "" {
		remoteStore, err = remote.New(ctx, remote.Config{
			URL:       config.SurrealDBURL,
			Namespace: config.SurrealDBNS,
			Database:  config.SurrealDBDB,
			Username:  config.SurrealDBUser,
			Password:  config.SurrealDBPass,
		})
		if err != nil {
			_ = localStore.Close()
			return nil, fmt.Errorf("connecting to SurrealDB: %w", err)
		}
		opts = append(opts, WithRemote(remoteStore))
	}

	return &App{
		config:      config,
		coordinator: NewCoordinator(localStore, opts...),
		localStore:  localStore,
		remoteStore: remoteStore,
		log:         log,
	}, nil
}

// Coordinator exposes the engine for tests and embedding callers.
func (a *App) Coordinator() *Coordinator {
	return a.coordinator
}

// Migrate creates or updates the schema in every configured store.
func (a *App) Migrate(ctx context.Context) error {
	if err := a.localStore.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating local store: %w", err)
	}
	if a.remoteStore != nil {
		if err := a.remoteStore.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating remote store: %w", err)
		}
	}
	return nil
}

// Expire runs one trash retention pass and returns. The schema must exist,
// so the local store is migrated first.
func (a *App) Expire(ctx context.Context) error {
	if err := a.localStore.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating local store: %w", err)
	}
	return a.coordinator.ExpireTrash(ctx)
}

// Close releases the coordinator's subscription and both stores.
func (a *App) Close() error {
	a.coordinator.Close()
	if a.remoteStore != nil {
		if err := a.remoteStore.Close(); err != nil {
			a.log.Warn().Err(err).Msg("closing remote store")
		}
	}
	return a.localStore.Close()
}

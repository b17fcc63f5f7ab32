package textverse

import (
	"context"
	"fmt"
)

// Main is the entry point for the textverse application. It parses args,
// builds the [App], and executes the selected command. Tests can call it
// directly with a cancellable context instead of building the binary.
//
// Environment variables override the corresponding flags:
//
//	TEXTVERSE_DB_PATH - path to the local SQLite file (default: textverse.db)
//	PORT              - HTTP listen port (default: 8080)
//	SURREALDB_URL     - SurrealDB WebSocket URL (default: ws://localhost:8000/rpc)
//	SURREALDB_NS      - SurrealDB namespace (default: textverse)
//	SURREALDB_DB      - SurrealDB database (default: textverse)
//	SURREALDB_USER    - SurrealDB username (default: root)
//	SURREALDB_PASS    - SurrealDB password (default: root)
func Main(ctx context.Context, args []string) error {
	cmd, config, err := Parse(args)
	if err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}

	app, err := NewApp(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer app.Close()

	switch cmd.(type) {
	case *MigrateCommand:
		if err := app.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	case *RunCommand:
		if err := app.Run(ctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case *ExpireCommand:
		if err := app.Expire(ctx); err != nil {
			return fmt.Errorf("expire failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown command type: %T", cmd)
	}

	return nil
}

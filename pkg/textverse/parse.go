package textverse

import (
	"flag"
	"fmt"
	"os"
)

// Parse parses command line arguments and returns the command to execute
// along with the shared application configuration. Flags may be overridden
// by environment variables; see Main for the full list.
func Parse(args []string) (Command, *Config, error) {
	flagSet := flag.NewFlagSet("textverse", flag.ContinueOnError)

	var (
		port   = flagSet.String("port", "8080", "Server port")
		dbPath = flagSet.String("db", "textverse.db", "Path to the local SQLite database file")
		remote = flagSet.Bool("remote", false, "Enable the SurrealDB backend for authenticated sessions")
	)

	if err := flagSet.Parse(args); err != nil {
		return nil, nil, err
	}

	remainingArgs := flagSet.Args()
	if len(remainingArgs) == 0 {
		return nil, nil, fmt.Errorf(`subcommand required

Usage: textverse [flags] <command>

Commands:
  run       Start the textverse server
  migrate   Create or update the database schema
  expire    Purge trashed notes past the retention window

Examples:
  textverse run                       # Local SQLite only
  textverse -remote run               # With SurrealDB for authenticated sessions
  textverse -port=8090 run
  textverse -db=/var/lib/textverse.db migrate
  textverse expire`)
	}

	var cmd Command
	switch remainingArgs[0] {
	case "run":
		cmd = &RunCommand{}
	case "migrate":
		cmd = &MigrateCommand{}
	case "expire":
		cmd = &ExpireCommand{}
	default:
		return nil, nil, fmt.Errorf("unknown command: %s\n\nValid commands: run, migrate, expire", remainingArgs[0])
	}

	config := &Config{
		DBPath:     getEnv("TEXTVERSE_DB_PATH", *dbPath),
		ServerPort: getEnv("PORT", *port),
	}
	if *remote {
		config.SurrealDBURL = getEnv("SURREALDB_URL", "ws://localhost:8000/rpc")
		config.SurrealDBNS = getEnv("SURREALDB_NS", "textverse")
		config.SurrealDBDB = getEnv("SURREALDB_DB", "textverse")
		config.SurrealDBUser = getEnv("SURREALDB_USER", "root")
		config.SurrealDBPass = getEnv("SURREALDB_PASS", "root")
	}

	return cmd, config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package textverse

// Command represents a discrete application operation selected on the
// command line. Each implementation carries the options for its operation;
// shared configuration lives in [Config]. Parse produces the command and
// Main dispatches it to the matching [App] method.
type Command interface {
	// Name returns the command identifier. It matches the CLI sub-command
	// used to select it.
	Name() string
}

// RunCommand starts the HTTP server. It loads the working set for the
// current session, serves the REST API until the context is cancelled, and
// then shuts down gracefully, draining in-flight requests.
type RunCommand struct{}

func (c *RunCommand) Name() string {
	return "run"
}

// MigrateCommand creates or updates the schema in every configured store.
// The local SQLite schema is created with GORM's AutoMigrate; the SurrealDB
// side needs no DDL and migrates as a no-op. Safe to run repeatedly.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// ExpireCommand runs a single trash expiry pass and exits: trashed notes
// older than the retention window are purged from the active backend. The
// same sweep also runs opportunistically whenever the trash is loaded, so
// this command exists for operators who want a scheduled cleanup.
type ExpireCommand struct{}

func (c *ExpireCommand) Name() string {
	return "expire"
}

package textverse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

func (a *App) router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", a.handleHealth).Methods("GET")
	router.HandleFunc("/public/{token}", a.handleResolveShare).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/session", a.handleGetSession).Methods("GET")
	api.HandleFunc("/session", a.handleSwitchSession).Methods("POST")

	api.HandleFunc("/notes", a.handleListNotes).Methods("GET")
	api.HandleFunc("/notes", a.handleCreateNote).Methods("POST")
	api.HandleFunc("/notes/delete", a.handleBulkDelete).Methods("POST")
	api.HandleFunc("/notes/move", a.handleBulkMove).Methods("POST")
	api.HandleFunc("/notes/{id}", a.handleGetNote).Methods("GET")
	api.HandleFunc("/notes/{id}", a.handleUpdateNote).Methods("PUT")
	api.HandleFunc("/notes/{id}", a.handleDeleteNote).Methods("DELETE")
	api.HandleFunc("/notes/{id}/pin", a.handlePinNote).Methods("POST")
	api.HandleFunc("/notes/{id}/unpin", a.handleUnpinNote).Methods("POST")
	api.HandleFunc("/notes/{id}/move", a.handleMoveNote).Methods("POST")
	api.HandleFunc("/notes/{id}/duplicate", a.handleDuplicateNote).Methods("POST")
	api.HandleFunc("/notes/{id}/share", a.handleToggleShare).Methods("POST")

	api.HandleFunc("/trash", a.handleListTrash).Methods("GET")
	api.HandleFunc("/trash/restore", a.handleBulkRestore).Methods("POST")
	api.HandleFunc("/trash/purge", a.handleBulkPurge).Methods("POST")
	api.HandleFunc("/trash/expire", a.handleExpireTrash).Methods("POST")
	api.HandleFunc("/trash/{id}/restore", a.handleRestoreNote).Methods("POST")
	api.HandleFunc("/trash/{id}", a.handlePurgeNote).Methods("DELETE")

	api.HandleFunc("/folders", a.handleListFolders).Methods("GET")
	api.HandleFunc("/folders", a.handleCreateFolder).Methods("POST")
	api.HandleFunc("/folders/counts", a.handleFolderCounts).Methods("GET")
	api.HandleFunc("/folders/current", a.handleSetCurrentFolder).Methods("PUT")
	api.HandleFunc("/folders/{id}", a.handleRenameFolder).Methods("PUT")
	api.HandleFunc("/folders/{id}", a.handleDeleteFolder).Methods("DELETE")

	api.HandleFunc("/export", a.handleExport).Methods("GET")
	api.HandleFunc("/import", a.handleImport).Methods("POST")

	return router
}

// Run migrates the local schema, loads the initial working set, and serves
// HTTP until ctx is cancelled. Shutdown drains in-flight requests for up to
// five seconds.
func (a *App) Run(ctx context.Context) error {
	if err := a.localStore.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating local store: %w", err)
	}
	if err := a.coordinator.LoadNotes(ctx); err != nil {
		return fmt.Errorf("loading notes: %w", err)
	}

	server := &http.Server{
		Addr:    ":" + a.config.ServerPort,
		Handler: a.router(),
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
	}
	return nil
}

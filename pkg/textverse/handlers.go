package textverse

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondOpError maps engine errors onto HTTP statuses: rejected input is
// 400, a missing target is 404, a transient backend failure (already rolled
// back) is 502, anything else 500.
func respondOpError(w http.ResponseWriter, err error) {
	switch {
	case IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	case IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case store.IsRetryable(err):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Session

func (a *App) handleGetSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.coordinator.Session())
}

func (a *App) handleSwitchSession(w http.ResponseWriter, r *http.Request) {
	var session Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.SwitchSession(r.Context(), session); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.Session())
}

// Notes

func (a *App) handleListNotes(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	if folder == "" {
		folder = a.coordinator.CurrentFolder()
	}
	query := r.URL.Query().Get("q")
	respondJSON(w, http.StatusOK, a.coordinator.FilteredNotes(folder, query))
}

func (a *App) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		Folder  string `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	note, err := a.coordinator.AddNote(r.Context(), req.Title, req.Content, req.Folder)
	if err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

func noteID(r *http.Request) (models.NoteID, bool) {
	id, err := models.ParseNoteID(mux.Vars(r)["id"])
	return id, err == nil
}

func (a *App) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	note := a.coordinator.GetNote(id)
	if note == nil {
		respondError(w, http.StatusNotFound, "Note not found")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (a *App) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	var req struct {
		Title   string `json:"title"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.UpdateNote(r.Context(), id, req.Title, req.Content); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.GetNote(id))
}

func (a *App) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	if err := a.coordinator.DeleteNote(r.Context(), id); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handlePinNote(w http.ResponseWriter, r *http.Request) {
	a.pinHandler(w, r, true)
}

func (a *App) handleUnpinNote(w http.ResponseWriter, r *http.Request) {
	a.pinHandler(w, r, false)
}

func (a *App) pinHandler(w http.ResponseWriter, r *http.Request, pinned bool) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	var err error
	if pinned {
		err = a.coordinator.PinNote(r.Context(), id)
	} else {
		err = a.coordinator.UnpinNote(r.Context(), id)
	}
	if err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.GetNote(id))
}

func (a *App) handleMoveNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	var req struct {
		Folder string `json:"folder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.MoveNote(r.Context(), id, req.Folder); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.GetNote(id))
}

func (a *App) handleDuplicateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	note, err := a.coordinator.DuplicateNote(r.Context(), id)
	if err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

type bulkRequest struct {
	IDs    []models.NoteID `json:"ids"`
	Folder string          `json:"folder,omitempty"`
}

func (a *App) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.DeleteNotes(r.Context(), req.IDs); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.Notes())
}

func (a *App) handleBulkMove(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.MoveNotes(r.Context(), req.IDs, req.Folder); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.Notes())
}

// Trash

func (a *App) handleListTrash(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.coordinator.Trash())
}

func (a *App) handleRestoreNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	if err := a.coordinator.RestoreNote(r.Context(), id); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.GetNote(id))
}

func (a *App) handlePurgeNote(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	if err := a.coordinator.PermanentlyDeleteNote(r.Context(), id); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleBulkRestore(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.RestoreNotes(r.Context(), req.IDs); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.Notes())
}

func (a *App) handleBulkPurge(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.PermanentlyDeleteNotes(r.Context(), req.IDs); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.Trash())
}

func (a *App) handleExpireTrash(w http.ResponseWriter, r *http.Request) {
	if err := a.coordinator.ExpireTrash(r.Context()); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.Trash())
}

// Folders

func (a *App) handleListFolders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.coordinator.Folders())
}

func (a *App) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	folder, err := a.coordinator.AddFolder(r.Context(), req.Label)
	if err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, folder)
}

func (a *App) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseFolderID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid folder ID")
		return
	}
	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.RenameFolder(r.Context(), id, req.Label); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, a.coordinator.Folders())
}

func (a *App) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseFolderID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid folder ID")
		return
	}
	if err := a.coordinator.DeleteFolder(r.Context(), id); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (a *App) handleFolderCounts(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.coordinator.CountsByFolder())
}

func (a *App) handleSetCurrentFolder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label string `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if err := a.coordinator.SetCurrentFolder(req.Label); err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"current_folder": a.coordinator.CurrentFolder()})
}

// Sharing

func (a *App) handleToggleShare(w http.ResponseWriter, r *http.Request) {
	id, ok := noteID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid note ID")
		return
	}
	state, err := a.coordinator.ToggleShare(r.Context(), id)
	if err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// handleResolveShare serves the one unauthenticated read: a share token
// resolves to the note it was minted for, whoever owns it.
func (a *App) handleResolveShare(w http.ResponseWriter, r *http.Request) {
	token, err := models.ParseShareToken(mux.Vars(r)["token"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid share token")
		return
	}
	note, err := a.coordinator.ResolveShare(r.Context(), token)
	if err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// Import / export

func (a *App) handleExport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, a.coordinator.ExportNotes())
}

func (a *App) handleImport(w http.ResponseWriter, r *http.Request) {
	var records []models.ExportRecord
	if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	count, err := a.coordinator.ImportNotes(r.Context(), records)
	if err != nil {
		respondOpError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"imported": count})
}

package textverse

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/textverse/textverse/pkg/models"
	"github.com/textverse/textverse/pkg/store/storetest"
)

func newTestServer(t *testing.T) (*httptest.Server, *Coordinator) {
	t.Helper()
	c := NewCoordinator(storetest.New())
	require.NoError(t, c.LoadNotes(context.Background()))
	app := &App{
		config:      &Config{ServerPort: "0"},
		coordinator: c,
		log:         zerolog.Nop(),
	}
	server := httptest.NewServer(app.router())
	t.Cleanup(func() {
		server.Close()
		_ = c.Close()
	})
	return server, c
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	var body map[string]string
	resp := doJSON(t, http.MethodGet, server.URL+"/health", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}

func TestNoteLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	var created models.Note
	resp := doJSON(t, http.MethodPost, server.URL+"/api/notes",
		map[string]string{"title": "hello", "content": "world"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.False(t, created.ID.IsZero())

	var listed []models.Note
	resp = doJSON(t, http.MethodGet, server.URL+"/api/notes", nil, &listed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, listed, 1)

	var updated models.Note
	resp = doJSON(t, http.MethodPut, server.URL+"/api/notes/"+created.ID.String(),
		map[string]string{"title": "hello", "content": "again"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "again", updated.Content)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/notes/"+created.ID.String()+"/pin", nil, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, updated.Pinned)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/notes/"+created.ID.String(), nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var trash []models.Note
	resp = doJSON(t, http.MethodGet, server.URL+"/api/trash", nil, &trash)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, trash, 1)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/trash/"+created.ID.String()+"/restore", nil, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Nil(t, updated.DeletedAt)
}

func TestNoteErrorsOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, server.URL+"/api/notes/not-a-uuid", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, server.URL+"/api/notes/"+models.NewNoteID().String(), nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, server.URL+"/api/notes/"+models.NewNoteID().String(),
		map[string]string{"title": "x"}, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFolderEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	var folder models.Folder
	resp := doJSON(t, http.MethodPost, server.URL+"/api/folders", map[string]string{"label": "Work"}, &folder)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/folders", map[string]string{"label": "All Notes"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "reserved label is rejected")

	var note models.Note
	doJSON(t, http.MethodPost, server.URL+"/api/notes",
		map[string]string{"title": "a", "content": "b", "folder": "Work"}, &note)

	var counts map[string]int
	resp = doJSON(t, http.MethodGet, server.URL+"/api/folders/counts", nil, &counts)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, counts["Work"])

	var folders []models.Folder
	resp = doJSON(t, http.MethodPut, server.URL+"/api/folders/"+folder.ID.String(),
		map[string]string{"label": "Job"}, &folders)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Job", folders[0].Label)

	resp = doJSON(t, http.MethodDelete, server.URL+"/api/folders/"+folder.ID.String(), nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestPublicShareEndpoint(t *testing.T) {
	server, c := newTestServer(t)
	ctx := context.Background()

	n, err := c.AddNote(ctx, "public note", "visible to all", "")
	require.NoError(t, err)

	var state ShareState
	resp := doJSON(t, http.MethodPost, server.URL+"/api/notes/"+n.ID.String()+"/share", nil, &state)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, state.Shared)

	var got models.Note
	resp = doJSON(t, http.MethodGet, server.URL+"/public/"+state.Token.String(), nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "visible to all", got.Content)

	resp = doJSON(t, http.MethodGet, server.URL+"/public/"+models.NewShareToken().String(), nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportExportEndpoints(t *testing.T) {
	server, c := newTestServer(t)
	ctx := context.Background()

	_, err := c.AddNote(ctx, "a", "body", "")
	require.NoError(t, err)

	var records []models.ExportRecord
	resp := doJSON(t, http.MethodGet, server.URL+"/api/export", nil, &records)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, records, 1)

	records[0].ID = models.NewNoteID()
	records[0].Title = "b"
	var result map[string]int
	resp = doJSON(t, http.MethodPost, server.URL+"/api/import", records, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, result["imported"])
	require.Len(t, c.Notes(), 2)
}

func TestSessionEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	var session Session
	resp := doJSON(t, http.MethodGet, server.URL+"/api/session", nil, &session)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, session.Authenticated)
	require.Equal(t, models.LocalOwnerID(), session.OwnerID)

	resp = doJSON(t, http.MethodPost, server.URL+"/api/session",
		map[string]any{"authenticated": true}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, "authenticated session needs an owner id")
}

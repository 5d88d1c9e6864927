package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/memosync/internal/models"
	"github.com/starford/memosync/internal/noteservice"
)

const maxBody = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// setETag exposes the version token of n, quoted per RFC 9110.
func setETag(w http.ResponseWriter, n *noteservice.NoteDetail) {
	if n.VersionToken != "" {
		w.Header().Set("ETag", `"`+n.VersionToken+`"`)
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary	List notes, newest first
//	@Tags		notes
//	@Produce	json
//	@Success	200	{object}	NoteListResponse
//	@Security	BearerAuth
//	@Router		/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context())
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{slug}.
//
//	@Summary	Get a single note
//	@Tags		notes
//	@Produce	json
//	@Param		slug	path		string	true	"Note slug"
//	@Success	200		{object}	NoteDetail
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes/{slug} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	setETag(w, n)
	writeJSON(w, http.StatusOK, n)
}

// CreateNote handles POST /api/notes.
//
//	@Summary	Create a note with a timestamp slug
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateNoteRequest	false	"Initial body"
//	@Success	201		{object}	NoteDetail
//	@Failure	409		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	n, err := h.svc.Create(r.Context(), req.Body)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// UpdateNote handles PUT /api/notes/{slug}. The edit is saved locally and pushed
// after the auto-save interval.
//
//	@Summary	Edit a note body
//	@Tags		notes
//	@Accept		json
//	@Produce	json
//	@Param		slug	path		string				true	"Note slug"
//	@Param		body	body		UpdateNoteRequest	true	"New body"
//	@Success	200		{object}	NoteDetail
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes/{slug} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Body == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("body is required"))
		return
	}
	n, err := h.svc.Update(r.Context(), chi.URLParam(r, "slug"), *req.Body)
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	setETag(w, n)
	writeJSON(w, http.StatusOK, n)
}

// DeleteNote handles DELETE /api/notes/{slug}.
//
//	@Summary	Delete a note locally and, in the background, remotely
//	@Tags		notes
//	@Param		slug	path	string	true	"Note slug"
//	@Success	204		"Note deleted"
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes/{slug} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PushNote handles POST /api/notes/{slug}/push.
//
//	@Summary	Push one note to the remote now
//	@Tags		sync
//	@Produce	json
//	@Param		slug		path		string	true	"Note slug"
//	@Param		If-Match	header		string	false	"Version token to present instead of the stored one"
//	@Success	200			{object}	NoteDetail
//	@Failure	409			{object}	errResponse
//	@Failure	412			{object}	errResponse
//	@Failure	502			{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes/{slug}/push [post]
func (h *Handler) PushNote(w http.ResponseWriter, r *http.Request) {
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	n, err := h.svc.Push(r.Context(), chi.URLParam(r, "slug"), ifMatch)
	if err != nil {
		writeError(w, "push note", err)
		return
	}
	setETag(w, n)
	writeJSON(w, http.StatusOK, n)
}

// DiscardPending handles DELETE /api/notes/{slug}/pending.
//
//	@Summary	Give up an unsaved offline edit so the next sync takes the remote body
//	@Tags		sync
//	@Param		slug	path	string	true	"Note slug"
//	@Success	204		"Edit discarded"
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/notes/{slug}/pending [delete]
func (h *Handler) DiscardPending(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Discard(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, "discard pending", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync handles POST /api/sync.
//
//	@Summary	Pull the remote collection into the local one
//	@Tags		sync
//	@Produce	json
//	@Success	200	{object}	NoteListResponse
//	@Failure	409	{object}	errResponse
//	@Failure	502	{object}	errResponse
//	@Security	BearerAuth
//	@Router		/sync [post]
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Sync(r.Context())
	if err != nil {
		writeError(w, "sync", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// Status handles GET /api/status.
//
//	@Summary	Sync state and visible toast
//	@Tags		sync
//	@Produce	json
//	@Success	200	{object}	StatusResponse
//	@Security	BearerAuth
//	@Router		/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{Status: h.svc.Status()}
	if t, ok := h.svc.Toast(); ok {
		resp.Toast = &t
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSettings handles GET /api/settings.
//
//	@Summary	Connection settings with the token masked
//	@Tags		settings
//	@Produce	json
//	@Success	200	{object}	SettingsResponse
//	@Security	BearerAuth
//	@Router		/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings(r.Context())
	if err != nil {
		writeError(w, "get settings", err)
		return
	}
	if s == nil {
		writeJSON(w, http.StatusOK, SettingsResponse{})
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Configured: true, Owner: s.Owner, Repo: s.Repo, Token: s.Token})
}

// PutSettings handles PUT /api/settings.
//
//	@Summary	Store connection settings
//	@Tags		settings
//	@Accept		json
//	@Param		body	body	SettingsRequest	true	"Settings"
//	@Success	204		"Saved"
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	var req SettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	err := h.svc.SaveSettings(r.Context(), models.Settings{Owner: req.Owner, Repo: req.Repo, Token: req.Token})
	if err != nil {
		writeError(w, "save settings", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteSettings handles DELETE /api/settings.
//
//	@Summary	Disconnect the remote
//	@Tags		settings
//	@Success	204	"Cleared"
//	@Security	BearerAuth
//	@Router		/settings [delete]
func (h *Handler) DeleteSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearSettings(r.Context()); err != nil {
		writeError(w, "clear settings", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

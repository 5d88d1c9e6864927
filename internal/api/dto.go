package api

import (
	"github.com/starford/memosync/internal/noteservice"
	"github.com/starford/memosync/internal/notify"
	"github.com/starford/memosync/internal/orchestrator"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Body string `json:"body" example:"# Groceries\nmilk"`
}

// UpdateNoteRequest is the request body for editing a note. Body is required but may be empty.
type UpdateNoteRequest struct {
	Body *string `json:"body" example:"# Groceries\nmilk, eggs"`
}

// SettingsRequest is the request body for PUT /settings.
type SettingsRequest struct {
	Owner string `json:"owner" example:"octocat"`
	Repo  string `json:"repo" example:"memos"`
	Token string `json:"token" example:"ghp_..."`
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// ListItem is a lightweight item in a list response (aliased from the domain layer).
type ListItem = noteservice.ListItem

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []ListItem `json:"notes"`
	Total int        `json:"total" example:"42"`
}

// StatusResponse reports the sync state and the visible toast.
type StatusResponse struct {
	orchestrator.Status
	Toast *notify.Toast `json:"toast,omitempty"`
}

// SettingsResponse reports the connection settings with the token masked.
type SettingsResponse struct {
	Configured bool   `json:"configured"`
	Owner      string `json:"owner,omitempty"`
	Repo       string `json:"repo,omitempty"`
	Token      string `json:"token,omitempty"`
}

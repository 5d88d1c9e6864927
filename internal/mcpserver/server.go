// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes memosync notes to LLM clients over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/memosync/internal/apperr"
	"github.com/starford/memosync/internal/noteservice"
	"github.com/starford/memosync/internal/orchestrator"
)

const formatURI = "memosync://note-format"

// Server wraps the MCP server with memosync tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates an MCP server with every tool registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"memosync",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, newest first, with title, preview and sync flag."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full body of a note."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Note slug, e.g. memo-20240101-093000")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. The slug is derived from the current time. "+
			"See the "+formatURI+" resource for how titles are derived."),
		mcp.WithString("body", mcp.Description("Initial body")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("update_note",
		mcp.WithDescription("Replace the body of a note. The change is pushed after the auto-save pause."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Note slug")),
		mcp.WithString("body", mcp.Required(), mcp.Description("New body")),
	), s.updateNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note locally; the remote copy is removed in the background."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Note slug")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("pull_notes",
		mcp.WithDescription("Pull the remote repository into the local collection. "+
			"Remote bodies replace local ones unless the remote copy is empty."),
	), s.pullNotes)

	s.mcp.AddTool(mcp.NewTool("push_note",
		mcp.WithDescription("Push one note to the remote repository now."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Note slug")),
		mcp.WithString("if_match", mcp.Description("Version token to present instead of the stored one")),
	), s.pushNote)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Note Format",
			mcp.WithResourceDescription("How memosync derives titles, previews and tags."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormat,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError renders err for the model, hiding nothing it can act on.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found: " + err.Error())
	case errors.Is(err, apperr.ErrBusy):
		return mcp.NewToolResultError("a sync is already running, try again shortly")
	default:
		return mcp.NewToolResultError(orchestrator.Message("failed", err))
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcpserver: encode: %w", err)
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(items)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Get(ctx, slug)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(n.Body), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.svc.Create(ctx, req.GetString("body", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(n)
}

func (s *Server) updateNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Update(ctx, slug, body)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(n)
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, slug); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("deleted: " + slug), nil
}

func (s *Server) pullNotes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.Sync(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(items)
}

func (s *Server) pushNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Push(ctx, slug, req.GetString("if_match", ""))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(n)
}

func (s *Server) readNoteFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}

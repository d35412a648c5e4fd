// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes notehub tools over stdio. The server acts as one fixed principal and
// goes through the note service, so it sees exactly what that user sees over HTTP.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notehub/internal/apperr"
	"github.com/starford/notehub/internal/models"
	"github.com/starford/notehub/internal/noteservice"
	"github.com/starford/notehub/internal/store"
)

const accessRulesURI = "notehub://access-rules"

// AccessRules describes who may do what with a note.
const AccessRules = `# notehub access rules

- Every note has exactly one owner: the user who created it.
- A note is readable by its owner, by anyone when it is public, and by the users it is shared with.
- Only the owner may update, delete, share, unshare or change the visibility of a note.
- Sharing grants read access only.
- Search covers the caller's own notes unless the server is configured for readable scope.
`

// Server wraps the MCP server with notehub tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
	as  models.Principal
}

// New creates an MCP server with all notehub tools registered, acting as p.
func New(svc *noteservice.Service, p models.Principal) *Server {
	s := &Server{svc: svc, as: p}

	s.mcp = server.NewMCPServer(
		"notehub",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Ranked full-text search over note titles and content. Title matches weigh twice as much as content matches."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query; any term may match")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (0 for the server default)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new private note."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title, at most 255 characters")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List your notes, most recently updated first."),
		mcp.WithBoolean("shared", mcp.Description("List notes other users shared with you instead")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("share_note",
		mcp.WithDescription("Grant another user read access to one of your notes."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		mcp.WithString("email", mcp.Required(), mcp.Description("Email of the user to share with")),
	), s.shareNote)

	s.mcp.AddResource(
		mcp.NewResource(accessRulesURI, "Access Rules",
			mcp.WithResourceDescription("Who may read and modify a note."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAccessRules,
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

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	hits, err := s.svc.Search(ctx, s.as, query, req.GetInt("limit", 0))
	if err != nil {
		return toolError(err), nil
	}
	if len(hits) == 0 {
		return mcp.NewToolResultText("no matching notes"), nil
	}
	type result struct {
		ID    string  `json:"id"`
		Title string  `json:"title"`
		Score float64 `json:"score"`
	}
	out := make([]result, len(hits))
	for i, h := range hits {
		out[i] = result{ID: h.Note.ID, Title: h.Note.Title, Score: h.Score}
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.GetNote(ctx, s.as, id)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("# %s\n\n%s", n.Title, n.Content)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.CreateNote(ctx, s.as, title, content)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("created: " + n.ID), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	opts := store.ListOptions{Desc: true}
	var (
		notes []*models.Note
		err   error
	)
	if req.GetBool("shared", false) {
		notes, err = s.svc.ListShared(ctx, s.as, opts)
	} else {
		notes, err = s.svc.ListOwned(ctx, s.as, opts)
	}
	if err != nil {
		return toolError(err), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	lines := make([]string, len(notes))
	for i, n := range notes {
		lines[i] = n.ID + "\t" + n.Title
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) shareNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	email, err := req.RequireString("email")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.svc.ShareNote(ctx, s.as, id, email); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("shared %s with %s", id, email)), nil
}

func (s *Server) readAccessRules(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      accessRulesURI,
			MIMEType: "text/markdown",
			Text:     AccessRules,
		},
	}, nil
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrPermissionDenied):
		return mcp.NewToolResultError("permission denied")
	default:
		return mcp.NewToolResultError(err.Error())
	}
}

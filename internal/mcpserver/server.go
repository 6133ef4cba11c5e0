// Package mcpserver exposes the vault operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/noteservice"
)

const (
	serverName       = "quire"
	conventionsURI   = "quire://conventions"
	defaultRecent    = 10
	defaultListLimit = 50
)

// Server wraps the MCP server with the vault tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	logger *slog.Logger
}

// New creates a new MCP server with every vault tool registered.
func New(svc *noteservice.Service, version string, logger *slog.Logger) *Server {
	s := &Server{svc: svc, logger: logger}

	s.mcp = server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithInstructions("Tools for a Markdown vault with daily notes in dailies/YYYY-MM-DD.md. "+
			"Call get_vault_conventions before creating notes or editing tasks."),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Searches markdown files in the vault by content (case-insensitive substring)."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The search query to find in note content")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Reads the full content of a specific markdown note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative or absolute path to the note")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_recent_notes",
		mcp.WithDescription("Lists the most recently modified notes in the vault."),
		mcp.WithNumber("count", mcp.Description("The number of recent notes to list (default: 10)")),
	), s.listRecentNotes)

	s.mcp.AddTool(mcp.NewTool("get_daily_note",
		mcp.WithDescription("Gets the daily note for a specific date."),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date string: 'today', 'yesterday', or 'YYYY-MM-DD' format")),
	), s.getDailyNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Creates a new markdown note with optional tags and folder. Never overwrites an existing note; "+
			"daily notes cannot be created with this tool."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title for the new note; the file is named <title>.md")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Content for the note")),
		mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Optional tags (e.g., ['snippet', 'sql'])")),
		mcp.WithString("folder", mcp.Description("Optional folder path (e.g., 'projects/work'). Defaults to vault root")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("mark_task",
		mcp.WithDescription("Marks every task whose text is exactly task_text with a specific status in a note."),
		mcp.WithString("task_text", mcp.Required(), mcp.Description("The exact task text to find (e.g., 'Call MetEd')")),
		mcp.WithString("status", mcp.Required(),
			mcp.Enum("Completed", "InProgress", "Forwarded", "Scheduled", "Open"),
			mcp.Description("Task status: 'Completed', 'InProgress', 'Forwarded', 'Scheduled', or 'Open'")),
		mcp.WithString("file_path", mcp.Required(), mcp.Description("Path from vault root (e.g., 'dailies/2025-12-04.md')")),
	), s.markTask)

	s.mcp.AddTool(mcp.NewTool("add_task_to_daily",
		mcp.WithDescription("Adds a new open task to the Short List section of a daily note."),
		mcp.WithString("task_text", mcp.Required(), mcp.Description("The task text to add (e.g., 'Call MetEd')")),
		mcp.WithString("date", mcp.Required(), mcp.Description("Date string: 'today', 'yesterday', or 'YYYY-MM-DD' format")),
	), s.addTaskToDaily)

	s.mcp.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("Lists checkbox tasks across the vault from the index."),
		mcp.WithString("status", mcp.Description("Optional status filter: Completed, InProgress, Forwarded, Scheduled or Open")),
		mcp.WithString("path", mcp.Description("Optional note path to restrict the listing to")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of tasks (default: 50)")),
	), s.listTasks)

	s.mcp.AddTool(mcp.NewTool("find_notes_by_tag",
		mcp.WithDescription("Lists notes carrying a tag, most recently updated first."),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Tag with or without the leading '#'")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes (default: 50)")),
	), s.findNotesByTag)

	s.mcp.AddTool(mcp.NewTool("get_vault_conventions",
		mcp.WithDescription("Returns the vault's note, daily note and task conventions."),
	), s.getVaultConventions)

	s.mcp.AddResource(
		mcp.NewResource(conventionsURI, "Vault Conventions",
			mcp.WithResourceDescription("Daily note layout, checkbox markers and tag line format."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readConventionsResource,
	)

	return s
}

// ServeStdio serves MCP on in/out until ctx is cancelled or in is closed.
// Transport errors go to the structured logger; out carries protocol traffic only.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	return stdio.Listen(ctx, in, out)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/noteservice"
)

const timeLayout = "2006-01-02 15:04:05"

// toolError reports err to the client as a tool-level failure.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("Error: " + err.Error())
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	results, err := s.svc.SearchByContent(ctx, query)
	if err != nil {
		return toolError(err), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No notes found containing '%s'", query)), nil
	}
	paths := make([]string, len(results))
	for i, m := range results {
		paths[i] = m.Path
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := s.svc.ReadNote(ctx, req.GetString("path", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) listRecentNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.svc.ListRecent(ctx, req.GetInt("count", defaultRecent))
	if err != nil {
		return toolError(err), nil
	}
	if len(notes) == 0 {
		return mcp.NewToolResultText("No markdown files found in vault"), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recent %d notes:\n", len(notes))
	for _, n := range notes {
		fmt.Fprintf(&b, "- %s (Modified: %s)\n", n.Path, n.UpdatedAt.Format(timeLayout))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getDailyNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	note, err := s.svc.ReadDailyNote(ctx, req.GetString("date", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rel, err := s.svc.CreateNote(ctx, noteservice.CreateNoteInput{
		Title:   req.GetString("title", ""),
		Content: req.GetString("content", ""),
		Tags:    req.GetStringSlice("tags", nil),
		Folder:  req.GetString("folder", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("Created: " + rel), nil
}

func (s *Server) markTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.MarkTask(ctx,
		req.GetString("file_path", ""),
		req.GetString("task_text", ""),
		req.GetString("status", ""),
	)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Marked %d task(s) '%s' as %s", res.Matches, res.TaskText, res.Status)), nil
}

func (s *Server) addTaskToDaily(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.AddTaskToDaily(ctx, req.GetString("task_text", ""), req.GetString("date", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Added: %s to %s", res.TaskText, res.Date)), nil
}

func (s *Server) listTasks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.svc.ListTasks(ctx, noteservice.TaskFilter{
		Status: req.GetString("status", ""),
		Path:   req.GetString("path", ""),
		Limit:  req.GetInt("limit", defaultListLimit),
	})
	if err != nil {
		return toolError(err), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("No tasks found"), nil
	}
	var b strings.Builder
	for _, t := range rows {
		fmt.Fprintf(&b, "%s:%d [%s] %s\n", t.Path, t.Line, t.Marker, t.Text)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) findNotesByTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")
	rows, err := s.svc.NotesByTag(ctx, tag, req.GetInt("limit", defaultListLimit))
	if err != nil {
		return toolError(err), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No notes tagged '%s'", tag)), nil
	}
	var b strings.Builder
	for _, n := range rows {
		fmt.Fprintf(&b, "- %s (%s)\n", n.Path, n.Title)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getVaultConventions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(VaultConventions), nil
}

func (s *Server) readConventionsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      conventionsURI,
			MIMEType: "text/markdown",
			Text:     VaultConventions,
		},
	}, nil
}

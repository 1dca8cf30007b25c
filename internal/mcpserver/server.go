// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes WordMaster study tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/wordmaster/internal/apperr"
	"github.com/starford/wordmaster/internal/models"
	"github.com/starford/wordmaster/internal/session"
)

// Server wraps the MCP server with WordMaster tools.
type Server struct {
	mcp  *server.MCPServer
	ctrl *session.Controller
}

// New creates a new MCP server with all WordMaster tools registered.
func New(ctrl *session.Controller) *Server {
	s := &Server{ctrl: ctrl}

	s.mcp = server.NewMCPServer(
		"WordMaster",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("import_words",
		mcp.WithDescription("Replace the whole word collection with words parsed from text. "+
			"Every imported word starts as unknown. Read the format first via "+
			"get_import_format or the wordmaster://import-format resource."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Word list, one term;definition per line")),
	), s.importWords)

	s.mcp.AddTool(mcp.NewTool("import_url",
		mcp.WithDescription("Download a text word list from an http(s) URL or a data: URI and import it. "+
			"Replaces the whole collection."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:text/plain;base64,... URI")),
	), s.importURL)

	s.mcp.AddTool(mcp.NewTool("get_import_format",
		mcp.WithDescription("Returns the word-list import format."),
	), s.getImportFormat)

	s.mcp.AddTool(mcp.NewTool("list_words",
		mcp.WithDescription("List words in collection order with their status."),
		mcp.WithString("filter", mcp.Description("all (default) or unknown"), mcp.Enum("all", "unknown")),
	), s.listWords)

	s.mcp.AddTool(mcp.NewTool("get_stats",
		mcp.WithDescription("Count words per status."),
	), s.getStats)

	s.mcp.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Show the study session: mode, filter, position and current word."),
	), s.getState)

	s.mcp.AddTool(mcp.NewTool("rate_word",
		mcp.WithDescription("Mark the current word and move on to the next one."),
		mcp.WithString("status", mcp.Required(), mcp.Description("familiar or unknown"), mcp.Enum("familiar", "unknown")),
	), s.rateWord)

	s.mcp.AddTool(mcp.NewTool("next_word",
		mcp.WithDescription("Move to the next (or previous) word, wrapping around."),
		mcp.WithBoolean("previous", mcp.Description("Move backwards instead")),
	), s.nextWord)

	s.mcp.AddTool(mcp.NewTool("check_dictation",
		mcp.WithDescription("Check a typed answer against the current term (case and surrounding space ignored)."),
		mcp.WithString("answer", mcp.Required(), mcp.Description("Typed term")),
	), s.checkDictation)

	s.mcp.AddTool(mcp.NewTool("shuffle_words",
		mcp.WithDescription("Shuffle the collection and restart from the first word."),
	), s.shuffleWords)

	s.mcp.AddTool(mcp.NewTool("reset_progress",
		mcp.WithDescription("Mark every word unknown. Requires confirm=true."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	), s.resetProgress)

	s.mcp.AddTool(mcp.NewTool("clear_words",
		mcp.WithDescription("Delete every word and the saved data. Requires confirm=true."),
		mcp.WithBoolean("confirm", mcp.Required(), mcp.Description("Must be true")),
	), s.clearWords)

	s.mcp.AddResource(
		mcp.NewResource("wordmaster://import-format", "Import Format",
			mcp.WithResourceDescription("Word-list format accepted by the import tools."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readImportFormatResource,
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

// stateView is the compact session summary returned by the tools.
type stateView struct {
	Mode     session.Mode   `json:"mode"`
	Filter   session.Filter `json:"filter"`
	Position int            `json:"position"`
	Size     int            `json:"size"`
	Current  *models.Word   `json:"current,omitempty"`
	Result   session.Result `json:"result,omitempty"`
	Stats    models.Stats   `json:"stats"`
}

func stateResult(snap session.Snapshot) *mcp.CallToolResult {
	v := stateView{
		Mode:    snap.Mode,
		Filter:  snap.Filter,
		Size:    snap.Size,
		Current: snap.Current,
		Stats:   snap.Stats,
	}
	if snap.Current != nil {
		v.Position = snap.Index + 1
	}
	if snap.Result != session.ResultNone {
		v.Result = snap.Result
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNoCurrentWord):
		return mcp.NewToolResultError("no words to study: import words or switch the filter to all")
	case errors.Is(err, apperr.ErrImportEmpty):
		return mcp.NewToolResultError("no words found: each line must look like term;definition")
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) doImport(text string) (*mcp.CallToolResult, error) {
	snap, n, err := s.ctrl.Import(text)
	if err != nil {
		return toolError(err), nil
	}
	res := stateResult(snap)
	res.Content = append([]mcp.Content{mcp.NewTextContent(fmt.Sprintf("imported: %d words", n))}, res.Content...)
	return res, nil
}

func (s *Server) importWords(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.doImport(text)
}

func (s *Server) getImportFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ImportFormatContract), nil
}

func (s *Server) listWords(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter, err := session.ParseFilter(req.GetString("filter", string(session.FilterAll)))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	words := session.Apply(s.ctrl.Store().Words(), filter)

	var b strings.Builder
	for _, w := range words {
		fmt.Fprintf(&b, "%d\t%s\t%s\t%s\n", w.ID, w.Status, w.Term, w.Definition)
	}
	if b.Len() == 0 {
		return mcp.NewToolResultText("no words"), nil
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) getStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	out, _ := json.MarshalIndent(s.ctrl.Store().Stats(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getState(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return stateResult(s.ctrl.Snapshot()), nil
}

func (s *Server) rateWord(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	snap, err := s.ctrl.Rate(models.Status(status))
	if err != nil {
		return toolError(err), nil
	}
	return stateResult(snap), nil
}

func (s *Server) nextWord(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	move := s.ctrl.Advance
	if req.GetBool("previous", false) {
		move = s.ctrl.Retreat
	}
	snap, err := move()
	if err != nil {
		return toolError(err), nil
	}
	return stateResult(snap), nil
}

func (s *Server) checkDictation(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	answer, err := req.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.ctrl.SetInput(answer); err != nil {
		return toolError(err), nil
	}
	snap, err := s.ctrl.Check()
	if err != nil {
		return toolError(err), nil
	}
	if snap.Result == session.ResultIncorrect {
		snap, _ = s.ctrl.Reveal()
		return mcp.NewToolResultText(fmt.Sprintf("incorrect: the answer is %q", snap.Current.Term)), nil
	}
	return mcp.NewToolResultText("correct"), nil
}

func (s *Server) shuffleWords(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snap, err := s.ctrl.Shuffle()
	if err != nil {
		return toolError(err), nil
	}
	return stateResult(snap), nil
}

func (s *Server) resetProgress(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !req.GetBool("confirm", false) {
		return toolError(fmt.Errorf("%w: pass confirm=true to reset progress", apperr.ErrConfirmationRequired)), nil
	}
	snap, err := s.ctrl.ResetProgress()
	if err != nil {
		return toolError(err), nil
	}
	return stateResult(snap), nil
}

func (s *Server) clearWords(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !req.GetBool("confirm", false) {
		return toolError(fmt.Errorf("%w: pass confirm=true to delete all words", apperr.ErrConfirmationRequired)), nil
	}
	if _, err := s.ctrl.Clear(); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("cleared"), nil
}

func (s *Server) readImportFormatResource(_ context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/markdown",
			Text:     ImportFormatContract,
		},
	}, nil
}

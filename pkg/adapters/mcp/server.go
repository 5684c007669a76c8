package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/chaptree"
	"github.com/aretw0/chaptree/internal/logging"
	"github.com/aretw0/chaptree/internal/validator"
	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/layout"
	"github.com/aretw0/chaptree/pkg/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DocumentURIPrefix is the scheme and path of document resources.
const DocumentURIPrefix = "chaptree://documents/"

// Documents defines the document service required by the MCP server.
// *session.Manager implements it.
type Documents interface {
	Open(ctx context.Context, documentID string) (*domain.Document, error)
	Apply(ctx context.Context, documentID string, cmd domain.Command) (*domain.Document, error)
	List(ctx context.Context) ([]string, error)
	Engine() *chaptree.Engine
}

// Server exposes chaptree documents as MCP tools and resources.
type Server struct {
	docs      Documents
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger of the server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(docs Documents, opts ...Option) *Server {
	s := &Server{
		docs:   docs,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("chaptree-mcp", strings.TrimSpace(chaptree.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on addr using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://localhost" + addr
	if !strings.HasPrefix(addr, ":") {
		baseURL = "http://" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: list_documents
	s.mcpServer.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the ids of every stored outline document."),
	), s.handleListDocuments)

	// TOOL: get_document
	s.mcpServer.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Return a document as JSON, starting it with a single unnamed root chapter if it does not exist."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("format", mcp.Description("json (default) or outline for a Markdown list")),
	), s.handleGetDocument)

	// TOOL: apply_command
	s.mcpServer.AddTool(mcp.NewTool("apply_command",
		mcp.WithDescription("Apply one structural edit: insert_before, insert_after, insert_child, rename, remove or assign_master."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Command kind")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Dotted zero-based sibling indices, e.g. 0.1")),
		mcp.WithString("name", mcp.Description("New label for rename; empty clears it")),
		mcp.WithString("master_id", mcp.Description("Master layout for assign_master")),
	), s.handleApplyCommand)

	// TOOL: get_layout
	s.mcpServer.AddTool(mcp.NewTool("get_layout",
		mcp.WithDescription("Compute the box geometry of a document, fitted to a viewport width."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithNumber("viewport", mcp.Description("Viewport width in pixels; 0 keeps the configured box size")),
	), s.handleGetLayout)

	// TOOL: lint_document
	s.mcpServer.AddTool(mcp.NewTool("lint_document",
		mcp.WithDescription("Report unnamed chapters, chapters without masters, duplicate masters and, with max_depth, chapters nested too deep."),
		mcp.WithString("document", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithNumber("max_depth", mcp.Description("Deepest allowed chapter; 0 disables the check")),
	), s.handleLintDocument)
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := s.docs.List(ctx)
	if err != nil {
		return toolError(err)
	}
	if ids == nil {
		ids = []string{}
	}
	return jsonResult(ids)
}

func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.docs.Open(ctx, request.GetString("document", ""))
	if err != nil {
		return toolError(err)
	}
	if request.GetString("format", "json") == "outline" {
		return mcp.NewToolResultText(chaptree.Outline(doc.Forest)), nil
	}
	return jsonResult(doc)
}

func (s *Server) handleApplyCommand(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	documentID, _ := args["document"].(string)

	envelope := make(map[string]any, len(args))
	for k, v := range args {
		if k != "document" {
			envelope[k] = v
		}
	}
	cmd, err := schema.DecodeMap(envelope)
	if err != nil {
		s.logger.WarnContext(ctx, "MCP apply_command: invalid arguments", "document", documentID, "err", err)
		return toolError(err)
	}

	doc, err := s.docs.Apply(ctx, documentID, cmd)
	if err != nil {
		return toolError(err)
	}
	return jsonResult(doc)
}

func (s *Server) handleGetLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.docs.Open(ctx, request.GetString("document", ""))
	if err != nil {
		return toolError(err)
	}
	viewport := request.GetFloat("viewport", 0)
	return jsonResult(layout.Plan(doc.Forest, s.docs.Engine().LayoutConfig(), viewport))
}

func (s *Server) handleLintDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.docs.Open(ctx, request.GetString("document", ""))
	if err != nil {
		return toolError(err)
	}
	findings := validator.Lint(doc.Forest, validator.WithMaxDepth(int(request.GetFloat("max_depth", 0))))
	if findings == nil {
		findings = []validator.Finding{}
	}
	return jsonResult(findings)
}

func (s *Server) registerResources() {
	// EXPOSE: chaptree://documents/{id}
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(DocumentURIPrefix+"{id}", "Outline document",
		mcp.WithTemplateDescription("A chapter outline document with its current revision"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readDocument)
}

func (s *Server) readDocument(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, ok := strings.CutPrefix(request.Params.URI, DocumentURIPrefix)
	if !ok {
		return nil, fmt.Errorf("unsupported resource %q", request.Params.URI)
	}
	doc, err := s.docs.Open(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// toolError reports domain failures to the agent as tool errors rather than protocol errors.
func toolError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

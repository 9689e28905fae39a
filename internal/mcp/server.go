package mcp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/docingest/internal/config"
	exterr "github.com/a3tai/docingest/internal/errors"
	"github.com/a3tai/docingest/internal/input"
	"github.com/a3tai/docingest/internal/pipeline"
	"github.com/a3tai/docingest/internal/recognize"
	"github.com/a3tai/docingest/internal/xfa"
)

// ServerName is announced to MCP clients
const ServerName = "docingest"

// Server represents the MCP server instance
type Server struct {
	config     config.RunConfig
	version    string
	resolver   *input.Resolver
	opener     pipeline.DocumentOpener
	recognizer recognize.Recognizer
	logger     *slog.Logger
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance. cfg supplies the defaults of
// every extraction request.
func NewServer(cfg config.RunConfig, version string, opener pipeline.DocumentOpener, recognizer recognize.Recognizer, logger *slog.Logger) (*Server, error) {
	if opener == nil {
		return nil, fmt.Errorf("opener cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:     cfg,
		version:    version,
		resolver:   input.NewResolver(cfg.MaxInputSize),
		opener:     opener,
		recognizer: recognizer,
		logger:     logger,
		mcpServer:  mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	extractTool := mcp.NewTool(
		"extract_document",
		mcp.WithDescription("Extract the embedded text, OCR text and XFA form data of a PDF or image, "+
			"as marker-delimited sections ([[XFA:BEGIN]], [[PAGE n:BEGIN]], [[TEXT:BEGIN]], [[OCR:BEGIN]])"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF or image file"),
		),
		mcp.WithString("mode",
			mcp.Description("Page extraction: text, ocr, hybrid or none"),
			mcp.Enum(string(config.ModeText), string(config.ModeOCR), string(config.ModeHybrid), string(config.ModeNone)),
		),
		mcp.WithString("xfa",
			mcp.Description("XFA form data: off, raw, full or clean"),
			mcp.Enum(string(xfa.ModeOff), string(xfa.ModeRaw), string(xfa.ModeFull), string(xfa.ModeClean)),
		),
		mcp.WithString("range",
			mcp.Description("Pages to extract, e.g. 1-5 or 1,3,10; empty or 'all' for every page"),
		),
		mcp.WithString("lang",
			mcp.Description("OCR languages joined by '+', e.g. eng+deu"),
		),
		mcp.WithNumber("dpi",
			mcp.Description(fmt.Sprintf("Rasterization resolution for OCR (%d-%d)", config.MinDPI, config.MaxDPI)),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Stop at the next page boundary after this many seconds; 0 disables"),
		),
	)
	s.mcpServer.AddTool(extractTool, s.handleExtractDocument)

	serverInfoTool := mcp.NewTool(
		"server_info",
		mcp.WithDescription("Get the server version and the extraction defaults"),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

func (s *Server) handleExtractDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if path == "" || path == input.StdinArg {
		return mcp.NewToolResultError("path must name a file: stdin input is not available over MCP"), nil
	}

	cfg, err := s.requestConfig(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	src, err := s.resolver.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	defer src.Close()

	logger := s.logger.With("request", uuid.NewString())
	var buf bytes.Buffer
	controller := pipeline.NewController(cfg, s.opener, s.recognizer, pipeline.WithLogger(logger))
	outcome := controller.Run(ctx, src, &buf)
	logger.Info("extract_document", "path", path, "outcome", outcome.String())

	switch outcome.Status {
	case pipeline.Failed:
		return mcp.NewToolResultError(outcome.Err.Error()), nil
	case pipeline.CompletedPartial:
		return mcp.NewToolResultText(s.formatPartialResult(buf.String(), outcome)), nil
	default:
		return mcp.NewToolResultText(buf.String()), nil
	}
}

// requestConfig overlays the request arguments on the server defaults
func (s *Server) requestConfig(request mcp.CallToolRequest) (config.RunConfig, error) {
	cfg := s.config

	if mode := request.GetString("mode", ""); mode != "" {
		cfg.Mode = config.ExtractMode(strings.ToLower(mode))
	}
	if mode := request.GetString("xfa", ""); mode != "" {
		parsed, err := xfa.ParseMode(mode)
		if err != nil {
			return cfg, exterr.Wrap(exterr.ErrorTypeConfig, "invalid xfa", err)
		}
		cfg.XFA = parsed
	}
	if pages := request.GetString("range", ""); pages != "" {
		cfg.PageRange = pages
	}
	if lang := request.GetString("lang", ""); lang != "" {
		cfg.Lang = lang
	}
	if dpi := request.GetFloat("dpi", 0); dpi != 0 {
		cfg.DPI = int(dpi)
	}
	if secs := request.GetFloat("timeout_seconds", -1); secs >= 0 {
		cfg.Timeout = time.Duration(secs * float64(time.Second))
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

// Formatting methods
func (s *Server) formatPartialResult(text string, outcome pipeline.RunOutcome) string {
	text = strings.TrimRight(text, "\n")
	if text != "" {
		text += "\n\n"
	}
	return text + fmt.Sprintf("NOTICE: extraction stopped early (%s) after %d of %d pages\n",
		outcome.Reason, outcome.PagesWritten, outcome.PagesSelected)
}

func (s *Server) formatServerInfo() string {
	pages := s.config.PageRange
	if pages == "" {
		pages = "all"
	}
	timeout := "none"
	if s.config.Timeout > 0 {
		timeout = s.config.Timeout.String()
	}

	text := fmt.Sprintf("%s v%s\n\n", ServerName, s.version)
	text += "Tools:\n"
	text += "  extract_document - text, OCR and XFA form data of a PDF or image\n"
	text += "  server_info      - this summary\n\n"
	text += "Defaults:\n"
	text += fmt.Sprintf("  mode: %s\n", s.config.Mode)
	text += fmt.Sprintf("  xfa: %s\n", s.config.XFA)
	text += fmt.Sprintf("  range: %s\n", pages)
	text += fmt.Sprintf("  lang: %s\n", s.config.Lang)
	text += fmt.Sprintf("  dpi: %d\n", s.config.DPI)
	text += fmt.Sprintf("  timeout: %s\n", timeout)
	text += fmt.Sprintf("  min confidence: %g\n", s.config.MinConfidence)
	text += fmt.Sprintf("  max input size: %d bytes\n", s.config.MaxInputSize)
	if s.recognizer == nil {
		text += "\nOCR is unavailable: no recognizer configured\n"
	}
	return text
}

// Run serves the tools on stdin/stdout until the client disconnects
func (s *Server) Run(_ context.Context) error {
	s.logger.Info("serving MCP on stdio", "name", ServerName, "version", s.version)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("stdio server error: %w", err)
	}
	return nil
}

package mcp

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/docingest/internal/config"
	"github.com/a3tai/docingest/internal/input"
	"github.com/a3tai/docingest/internal/pipeline"
	"github.com/a3tai/docingest/internal/recognize"
	"github.com/a3tai/docingest/internal/wrapper"
	"github.com/a3tai/docingest/internal/xfa"
)

type stubRecognizer struct {
	languages []string
	dpi       int
}

func (r *stubRecognizer) Recognize(_ context.Context, _ []byte, dpi int, languages []string) (*recognize.Result, error) {
	r.languages = languages
	r.dpi = dpi
	return &recognize.Result{Text: "Invoice 42", Confidence: 91, Words: 2}, nil
}

// slowOpener delays every open so that short deadlines expire before the
// first boundary check
type slowOpener struct {
	next  *wrapper.Opener
	delay time.Duration
}

func (o *slowOpener) Open(src *input.Source) (wrapper.Document, error) {
	time.Sleep(o.delay)
	return o.next.Open(src)
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		img.SetGray(x, 4, color.Gray{Y: 255})
	}
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

func newTestServer(t *testing.T, rec recognize.Recognizer) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	server, err := NewServer(cfg, "1.0.0", wrapper.NewOpener(nil, nil), rec, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()

	server, err := NewServer(cfg, "1.0.0", wrapper.NewOpener(nil, nil), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.mcpServer == nil {
		t.Error("mcpServer should not be nil")
	}
	if server.version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", server.version)
	}

	if _, err := NewServer(cfg, "1.0.0", nil, nil, nil); err == nil {
		t.Error("expected error for nil opener")
	}
}

func TestServer_HandleExtractDocument(t *testing.T) {
	path := writeTestImage(t)

	tests := []struct {
		name     string
		args     map[string]interface{}
		contains []string
		absent   []string
	}{
		{
			name:     "hybrid defaults",
			args:     map[string]interface{}{"path": path},
			contains: []string{"[[PAGE 1:BEGIN]]", "[[TEXT:BEGIN]]\n[[TEXT:END]]", "[[OCR:BEGIN]]\nInvoice 42\n[[OCR:END]]", "[[PAGE 1:END]]"},
			absent:   []string{"[[XFA:BEGIN]]", "NOTICE"},
		},
		{
			name:     "text only",
			args:     map[string]interface{}{"path": path, "mode": "text", "xfa": "off"},
			contains: []string{"[[TEXT:BEGIN]]"},
			absent:   []string{"[[OCR:BEGIN]]"},
		},
		{
			name:     "ocr only with explicit range",
			args:     map[string]interface{}{"path": path, "mode": "OCR", "range": "1"},
			contains: []string{"[[OCR:BEGIN]]"},
			absent:   []string{"[[TEXT:BEGIN]]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, &stubRecognizer{})

			result, err := server.handleExtractDocument(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if result.IsError {
				t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
			}

			text := extractTextFromResult(result)
			for _, want := range tt.contains {
				if !strings.Contains(text, want) {
					t.Errorf("result should contain %q, got:\n%s", want, text)
				}
			}
			for _, unwanted := range tt.absent {
				if strings.Contains(text, unwanted) {
					t.Errorf("result should not contain %q, got:\n%s", unwanted, text)
				}
			}
		})
	}
}

func TestServer_HandleExtractDocument_Overrides(t *testing.T) {
	rec := &stubRecognizer{}
	server := newTestServer(t, rec)

	request := callRequest(map[string]interface{}{
		"path": writeTestImage(t),
		"mode": "ocr",
		"lang": "eng+deu",
		"dpi":  float64(150),
	})
	result, err := server.handleExtractDocument(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}

	if rec.dpi != 150 {
		t.Errorf("expected dpi 150, got %d", rec.dpi)
	}
	if strings.Join(rec.languages, ",") != "eng,deu" {
		t.Errorf("expected languages eng,deu, got %v", rec.languages)
	}
	if server.config.DPI != config.DefaultDPI {
		t.Errorf("server defaults must not change, got dpi %d", server.config.DPI)
	}
}

func TestServer_HandleExtractDocument_Errors(t *testing.T) {
	path := writeTestImage(t)
	notADocument := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(notADocument, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantMsg string
	}{
		{name: "missing path", args: map[string]interface{}{}, wantMsg: "path"},
		{name: "stdin", args: map[string]interface{}{"path": "-"}, wantMsg: "stdin"},
		{name: "missing file", args: map[string]interface{}{"path": filepath.Join(t.TempDir(), "nope.pdf")}, wantMsg: "INPUT"},
		{name: "unsupported format", args: map[string]interface{}{"path": notADocument}, wantMsg: "DOCUMENT_OPEN"},
		{name: "invalid mode", args: map[string]interface{}{"path": path, "mode": "audio"}, wantMsg: "invalid mode"},
		{name: "invalid xfa", args: map[string]interface{}{"path": path, "xfa": "xml"}, wantMsg: "invalid xfa"},
		{name: "dpi out of range", args: map[string]interface{}{"path": path, "dpi": float64(1200)}, wantMsg: "dpi"},
		{name: "nothing to extract", args: map[string]interface{}{"path": path, "mode": "none", "xfa": "off"}, wantMsg: "nothing to extract"},
		{name: "range past the end", args: map[string]interface{}{"path": path, "range": "2-3"}, wantMsg: "INVALID_RANGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, &stubRecognizer{})

			result, err := server.handleExtractDocument(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected tool error, got: %s", extractTextFromResult(result))
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.wantMsg) {
				t.Errorf("expected error containing %q, got: %s", tt.wantMsg, text)
			}
		})
	}
}

func TestServer_HandleExtractDocument_Partial(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeText
	cfg.XFA = xfa.ModeOff
	opener := &slowOpener{next: wrapper.NewOpener(nil, nil), delay: 20 * time.Millisecond}
	server, err := NewServer(cfg, "1.0.0", opener, nil, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}

	request := callRequest(map[string]interface{}{
		"path":            writeTestImage(t),
		"timeout_seconds": 0.001,
	})
	result, err := server.handleExtractDocument(context.Background(), request)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("a timeout is a partial result, got error: %s", extractTextFromResult(result))
	}

	text := extractTextFromResult(result)
	if !strings.Contains(text, "NOTICE: extraction stopped early (timeout) after 0 of 1 pages") {
		t.Errorf("expected timeout notice, got: %s", text)
	}
	if strings.Contains(text, "[[PAGE 1:BEGIN]]") {
		t.Errorf("no page should be written after the deadline, got: %s", text)
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	server := newTestServer(t, nil)

	result, err := server.handleServerInfo(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	text := extractTextFromResult(result)
	for _, want := range []string{
		"docingest v1.0.0",
		"extract_document",
		"mode: hybrid",
		"xfa: clean",
		"range: all",
		"dpi: 300",
		"timeout: none",
		"OCR is unavailable",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("server info should contain %q, got:\n%s", want, text)
		}
	}
}

func TestServer_FormatPartialResult(t *testing.T) {
	server := newTestServer(t, nil)

	got := server.formatPartialResult("[[PAGE 1:BEGIN]]\n[[PAGE 1:END]]\n", pipelineOutcome(1, 3))
	want := "[[PAGE 1:BEGIN]]\n[[PAGE 1:END]]\n\nNOTICE: extraction stopped early (timeout) after 1 of 3 pages\n"
	if got != want {
		t.Errorf("formatPartialResult() = %q, want %q", got, want)
	}

	if got := server.formatPartialResult("", pipelineOutcome(0, 3)); strings.HasPrefix(got, "\n") {
		t.Errorf("empty output should not be padded, got %q", got)
	}
}

func pipelineOutcome(written, selected int) pipeline.RunOutcome {
	return pipeline.RunOutcome{
		Status:        pipeline.CompletedPartial,
		Reason:        pipeline.ReasonTimeout,
		PagesWritten:  written,
		PagesSelected: selected,
	}
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}

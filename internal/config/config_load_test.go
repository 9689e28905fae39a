package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	exterr "github.com/a3tai/docingest/internal/errors"
	"github.com/a3tai/docingest/internal/xfa"
)

// Helper function to clear environment variables
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, name := range []string{"MODE", "XFA", "LANG", "DPI", "RANGE", "TIMEOUT", "MIN_CONFIDENCE", "XFA_PRUNE"} {
		t.Setenv(EnvPrefix+"_"+name, "")
		os.Unsetenv(EnvPrefix + "_" + name)
	}
}

func TestLoadFromArgs_DefaultConfig(t *testing.T) {
	clearEnvVars(t)

	cfg, err := LoadFromArgs(nil, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("LoadFromArgs() unexpected error: %v", err)
	}

	if cfg.Mode != ModeHybrid {
		t.Errorf("LoadFromArgs() Mode = %v, want %v", cfg.Mode, ModeHybrid)
	}
	if cfg.XFA != xfa.ModeClean {
		t.Errorf("LoadFromArgs() XFA = %v, want %v", cfg.XFA, xfa.ModeClean)
	}
	if cfg.File != "" {
		t.Errorf("LoadFromArgs() File = %q, want stdin", cfg.File)
	}
	if cfg.XFASeparator != "." {
		t.Errorf("LoadFromArgs() XFASeparator = %q, want %q", cfg.XFASeparator, ".")
	}
	if len(cfg.XFAPrune) != 0 {
		t.Errorf("LoadFromArgs() XFAPrune = %v, want empty", cfg.XFAPrune)
	}
}

func TestLoadFromArgs_ValidFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantMode    ExtractMode
		wantXFA     xfa.Mode
		wantDPI     int
		wantRange   string
		wantTimeout time.Duration
		wantFile    string
	}{
		{
			name:        "short flags",
			args:        []string{"-m", "text", "-x", "off", "-d", "150", "-r", "1-5", "-t", "30", "doc.pdf"},
			wantMode:    ModeText,
			wantXFA:     xfa.ModeOff,
			wantDPI:     150,
			wantRange:   "1-5",
			wantTimeout: 30 * time.Second,
			wantFile:    "doc.pdf",
		},
		{
			name:        "long flags",
			args:        []string{"--mode=ocr", "--xfa=raw", "--dpi=600", "--range=3,5-7", "--timeout=2m", "-"},
			wantMode:    ModeOCR,
			wantXFA:     xfa.ModeRaw,
			wantDPI:     600,
			wantRange:   "3,5-7",
			wantTimeout: 2 * time.Minute,
			wantFile:    "-",
		},
		{
			name:      "case insensitive enums",
			args:      []string{"--mode", "NONE", "--xfa", "Full"},
			wantMode:  ModeNone,
			wantXFA:   xfa.ModeFull,
			wantDPI:   DefaultDPI,
			wantRange: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)

			cfg, err := LoadFromArgs(tt.args, &bytes.Buffer{})
			if err != nil {
				t.Fatalf("LoadFromArgs() unexpected error: %v", err)
			}
			if cfg.Mode != tt.wantMode {
				t.Errorf("Mode = %v, want %v", cfg.Mode, tt.wantMode)
			}
			if cfg.XFA != tt.wantXFA {
				t.Errorf("XFA = %v, want %v", cfg.XFA, tt.wantXFA)
			}
			if cfg.DPI != tt.wantDPI {
				t.Errorf("DPI = %v, want %v", cfg.DPI, tt.wantDPI)
			}
			if cfg.PageRange != tt.wantRange {
				t.Errorf("PageRange = %q, want %q", cfg.PageRange, tt.wantRange)
			}
			if cfg.Timeout != tt.wantTimeout {
				t.Errorf("Timeout = %v, want %v", cfg.Timeout, tt.wantTimeout)
			}
			if cfg.File != tt.wantFile {
				t.Errorf("File = %q, want %q", cfg.File, tt.wantFile)
			}
		})
	}
}

func TestLoadFromArgs_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no-op", args: []string{"--mode", "none", "--xfa", "off"}},
		{name: "bad mode", args: []string{"--mode", "fast"}},
		{name: "bad xfa", args: []string{"--xfa", "pretty"}},
		{name: "bad dpi", args: []string{"--dpi", "1200"}},
		{name: "bad timeout", args: []string{"--timeout", "soon"}},
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "two files", args: []string{"a.pdf", "b.pdf"}},
		{name: "missing config file", args: []string{"--config", "/nonexistent/docingest.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)

			_, err := LoadFromArgs(tt.args, &bytes.Buffer{})
			if err == nil {
				t.Fatal("LoadFromArgs() expected error")
			}
			if code := exterr.ExitCodeOf(err); code != exterr.ExitConfig {
				t.Errorf("exit code = %d, want %d (%v)", code, exterr.ExitConfig, err)
			}
		})
	}
}

func TestLoadFromArgs_Environment(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("DOCINGEST_MODE", "text")
	t.Setenv("DOCINGEST_DPI", "200")
	t.Setenv("DOCINGEST_MIN_CONFIDENCE", "75")
	t.Setenv("DOCINGEST_XFA_PRUNE", "internal,audit")

	cfg, err := LoadFromArgs([]string{"--dpi", "100"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("LoadFromArgs() unexpected error: %v", err)
	}

	if cfg.Mode != ModeText {
		t.Errorf("Mode = %v, want text from environment", cfg.Mode)
	}
	if cfg.DPI != 100 {
		t.Errorf("DPI = %d, want flag to override environment", cfg.DPI)
	}
	if cfg.MinConfidence != 75 {
		t.Errorf("MinConfidence = %v, want 75", cfg.MinConfidence)
	}
	if len(cfg.XFAPrune) != 2 || cfg.XFAPrune[0] != "internal" || cfg.XFAPrune[1] != "audit" {
		t.Errorf("XFAPrune = %v, want [internal audit]", cfg.XFAPrune)
	}
}

func TestLoadFromArgs_ConfigFile(t *testing.T) {
	clearEnvVars(t)
	path := filepath.Join(t.TempDir(), "docingest.yaml")
	content := "mode: ocr\nlang: eng+deu\nxfa-separator: /\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromArgs([]string{"--config", path, "--mode", "hybrid"}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("LoadFromArgs() unexpected error: %v", err)
	}

	if cfg.Mode != ModeHybrid {
		t.Errorf("Mode = %v, want flag to override config file", cfg.Mode)
	}
	if cfg.Lang != "eng+deu" {
		t.Errorf("Lang = %q, want %q", cfg.Lang, "eng+deu")
	}
	if cfg.XFASeparator != "/" {
		t.Errorf("XFASeparator = %q, want %q", cfg.XFASeparator, "/")
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadFromArgs_VersionAndHelp(t *testing.T) {
	clearEnvVars(t)

	if _, err := LoadFromArgs([]string{"--version"}, &bytes.Buffer{}); !errors.Is(err, ErrVersionRequested) {
		t.Errorf("--version error = %v, want ErrVersionRequested", err)
	}

	var usage bytes.Buffer
	if _, err := LoadFromArgs([]string{"--help"}, &usage); !errors.Is(err, pflag.ErrHelp) {
		t.Errorf("--help error = %v, want pflag.ErrHelp", err)
	}
	if !bytes.Contains(usage.Bytes(), []byte("Usage: docingest")) {
		t.Errorf("usage output missing header: %q", usage.String())
	}
}

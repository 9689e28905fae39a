package config

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	exterr "github.com/a3tai/docingest/internal/errors"
	"github.com/a3tai/docingest/internal/input"
	"github.com/a3tai/docingest/internal/xfa"
)

// ExtractMode selects which per-page layers run
type ExtractMode string

const (
	ModeText   ExtractMode = "text"
	ModeOCR    ExtractMode = "ocr"
	ModeHybrid ExtractMode = "hybrid"
	ModeNone   ExtractMode = "none"
)

const (
	// Default values
	DefaultMode          = ModeHybrid
	DefaultXFA           = xfa.ModeClean
	DefaultLang          = "eng"
	DefaultDPI           = 300
	DefaultMinConfidence = 60.0
	DefaultRenderer      = "pdftoppm"
	DefaultMaxInputSize  = input.DefaultMaxSize

	// DPI bounds accepted by the rasterizer
	MinDPI = 72
	MaxDPI = 600

	// EnvPrefix prefixes every environment variable
	EnvPrefix = "DOCINGEST"
)

// ErrVersionRequested is returned when --version is given
var ErrVersionRequested = errors.New("version requested")

// RunConfig holds the settings of one extraction run. It is built once and
// passed by value.
type RunConfig struct {
	// Input
	File         string // empty or "-" reads stdin
	MaxInputSize int64

	// Extraction
	Mode          ExtractMode
	XFA           xfa.Mode
	Lang          string // Tesseract codes joined by "+"
	DPI           int
	PageRange     string
	Timeout       time.Duration // zero means no deadline
	MinConfidence float64
	Tessdata      string
	Renderer      string

	// XFA cleaning
	XFAPrune     []string
	XFASeparator string

	// Application
	Verbose    bool
	MCP        bool
	ConfigFile string
}

// DefaultConfig returns a configuration with the documented defaults
func DefaultConfig() RunConfig {
	return RunConfig{
		MaxInputSize:  DefaultMaxInputSize,
		Mode:          DefaultMode,
		XFA:           DefaultXFA,
		Lang:          DefaultLang,
		DPI:           DefaultDPI,
		MinConfidence: DefaultMinConfidence,
		Renderer:      DefaultRenderer,
		XFASeparator:  xfa.DotSeparator,
	}
}

// LoadFromArgs parses command line arguments (without the program name),
// environment variables and an optional config file, in increasing order of
// precedence: file, environment, flags. Usage and parse errors go to stderr.
func LoadFromArgs(args []string, stderr io.Writer) (RunConfig, error) {
	cfg := DefaultConfig()
	v := viper.New()
	fs := pflag.NewFlagSet("docingest", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	setupViperEnvironment(v, cfg)
	defineCommandLineFlags(fs, cfg)
	bindFlagsToViper(v, fs)
	setupUsageMessage(fs, stderr)

	// Check for version flag before parsing
	if checkVersionFlag(args) {
		return cfg, ErrVersionRequested
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return cfg, err
		}
		return cfg, exterr.Wrap(exterr.ErrorTypeConfig, "invalid arguments", err)
	}

	if file, _ := fs.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return cfg, exterr.Wrap(exterr.ErrorTypeConfig, "cannot read config file", err).WithContext(file)
		}
		cfg.ConfigFile = file
	}

	switch fs.NArg() {
	case 0:
	case 1:
		cfg.File = fs.Arg(0)
	default:
		return cfg, exterr.Newf(exterr.ErrorTypeConfig, "expected at most one input file, got %d", fs.NArg())
	}

	if err := populateConfigFromViper(v, &cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(v *viper.Viper, cfg RunConfig) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", string(cfg.Mode))
	v.SetDefault("xfa", string(cfg.XFA))
	v.SetDefault("lang", cfg.Lang)
	v.SetDefault("dpi", cfg.DPI)
	v.SetDefault("range", cfg.PageRange)
	v.SetDefault("timeout", "0")
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("min-confidence", cfg.MinConfidence)
	v.SetDefault("tessdata", cfg.Tessdata)
	v.SetDefault("xfa-prune", []string{})
	v.SetDefault("xfa-separator", cfg.XFASeparator)
	v.SetDefault("max-input-size", cfg.MaxInputSize)
	v.SetDefault("renderer", cfg.Renderer)
	v.SetDefault("mcp", cfg.MCP)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(fs *pflag.FlagSet, cfg RunConfig) {
	fs.StringP("mode", "m", string(cfg.Mode), "Page extraction: text, ocr, hybrid or none")
	fs.StringP("xfa", "x", string(cfg.XFA), "XFA form data: off, raw, full or clean")
	fs.StringP("lang", "l", cfg.Lang, "OCR languages, joined by '+' (e.g. eng+deu)")
	fs.IntP("dpi", "d", cfg.DPI, fmt.Sprintf("Rasterization resolution (%d-%d)", MinDPI, MaxDPI))
	fs.StringP("range", "r", cfg.PageRange, "Pages to extract, e.g. 1-5 or 1,3,10 (default all)")
	fs.StringP("timeout", "t", "0", "Global timeout in seconds or as a duration (90s, 2m); 0 disables")
	fs.BoolP("verbose", "v", cfg.Verbose, "Log diagnostics to stderr")
	fs.Float64("min-confidence", cfg.MinConfidence, "Discard OCR text with a lower mean word confidence (percent)")
	fs.String("tessdata", cfg.Tessdata, "Tesseract data directory (default: next to the executable, then ./tessdata)")
	fs.StringSlice("xfa-prune", nil, "Extra XFA element names dropped in clean mode")
	fs.String("xfa-separator", cfg.XFASeparator, "Key separator of cleaned XFA records: '.' or '/'")
	fs.Int64("max-input-size", cfg.MaxInputSize, "Maximum input size in bytes")
	fs.String("renderer", cfg.Renderer, "Page rasterizer executable")
	fs.Bool("mcp", cfg.MCP, "Serve extraction as an MCP tool over stdio")
	fs.String("config", "", "Config file (YAML, TOML or JSON)")
	fs.Bool("version", false, "Print version and exit")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper(v *viper.Viper, fs *pflag.FlagSet) {
	for _, name := range []string{
		"mode", "xfa", "lang", "dpi", "range", "timeout", "verbose", "min-confidence",
		"tessdata", "xfa-prune", "xfa-separator", "max-input-size", "renderer", "mcp",
	} {
		_ = v.BindPFlag(name, fs.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage(fs *pflag.FlagSet, w io.Writer) {
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage: docingest [options] [FILE]\n")
		fmt.Fprintf(w, "\nExtracts text, OCR and XFA form data from a PDF or image for LLM ingestion.\n")
		fmt.Fprintf(w, "Reads stdin when FILE is omitted or '-'.\n\n")
		fmt.Fprintf(w, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(w, "\nExamples:\n")
		fmt.Fprintf(w, "  docingest scan.pdf                      # text + OCR for every page, cleaned XFA\n")
		fmt.Fprintf(w, "  docingest -m text -x off -r 1-5 a.pdf   # embedded text of pages 1-5 only\n")
		fmt.Fprintf(w, "  cat form.pdf | docingest -m none        # XFA form data only\n")
		fmt.Fprintf(w, "\nEnvironment Variables:\n")
		fmt.Fprintf(w, "  %s_<FLAG>  any flag, upper-cased with '-' as '_' (e.g. %s_MIN_CONFIDENCE)\n", EnvPrefix, EnvPrefix)
		fmt.Fprintf(w, "\nExit codes: 0 complete, 1 configuration, 2 timeout (partial output), 3 input,\n")
		fmt.Fprintf(w, "4 document open, 5 XFA parse, 6 internal\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "--version" || arg == "-version" {
			return true
		}
	}
	return false
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *RunConfig) error {
	cfg.Mode = ExtractMode(strings.ToLower(v.GetString("mode")))
	cfg.Lang = v.GetString("lang")
	cfg.DPI = v.GetInt("dpi")
	cfg.PageRange = v.GetString("range")
	cfg.Verbose = v.GetBool("verbose")
	cfg.MinConfidence = v.GetFloat64("min-confidence")
	cfg.Tessdata = v.GetString("tessdata")
	cfg.XFAPrune = splitList(v.GetStringSlice("xfa-prune"))
	cfg.XFASeparator = v.GetString("xfa-separator")
	cfg.MaxInputSize = v.GetInt64("max-input-size")
	cfg.Renderer = v.GetString("renderer")
	cfg.MCP = v.GetBool("mcp")

	mode, err := xfa.ParseMode(v.GetString("xfa"))
	if err != nil {
		return exterr.Wrap(exterr.ErrorTypeConfig, "invalid --xfa", err)
	}
	cfg.XFA = mode

	timeout, err := ParseTimeout(v.GetString("timeout"))
	if err != nil {
		return exterr.Wrap(exterr.ErrorTypeConfig, "invalid --timeout", err)
	}
	cfg.Timeout = timeout
	return nil
}

// ParseTimeout accepts a bare number of seconds or a Go duration
func ParseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither seconds nor a duration", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative timeout %s", d)
	}
	return d, nil
}

// splitList flattens comma separated entries, as environment variables and
// config files deliver them unsplit
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks if the configuration is valid. A configuration with every
// stage disabled is rejected.
func (c RunConfig) Validate() error {
	switch c.Mode {
	case ModeText, ModeOCR, ModeHybrid, ModeNone:
	default:
		return exterr.Newf(exterr.ErrorTypeConfig, "invalid mode %q (must be one of: text, ocr, hybrid, none)", c.Mode)
	}

	if _, err := xfa.ParseMode(string(c.XFA)); err != nil {
		return exterr.Wrap(exterr.ErrorTypeConfig, "invalid XFA mode", err)
	}

	if !c.TextEnabled() && !c.OCREnabled() && c.XFA == xfa.ModeOff {
		return exterr.New(exterr.ErrorTypeConfig, "nothing to extract: text, OCR and XFA are all disabled")
	}

	if c.DPI < MinDPI || c.DPI > MaxDPI {
		return exterr.Newf(exterr.ErrorTypeConfig, "dpi must be between %d and %d, got %d", MinDPI, MaxDPI, c.DPI)
	}

	if c.Timeout < 0 {
		return exterr.New(exterr.ErrorTypeConfig, "timeout cannot be negative")
	}

	if c.MaxInputSize <= 0 {
		return exterr.New(exterr.ErrorTypeConfig, "maximum input size must be positive")
	}

	if c.XFASeparator != xfa.DotSeparator && c.XFASeparator != xfa.SlashSeparator {
		return exterr.Newf(exterr.ErrorTypeConfig, "xfa separator must be %q or %q", xfa.DotSeparator, xfa.SlashSeparator)
	}

	if c.OCREnabled() && strings.Trim(c.Lang, "+ ") == "" {
		return exterr.New(exterr.ErrorTypeConfig, "OCR language cannot be empty")
	}

	return nil
}

// TextEnabled reports whether the embedded text layer is extracted
func (c RunConfig) TextEnabled() bool {
	return c.Mode == ModeText || c.Mode == ModeHybrid
}

// OCREnabled reports whether pages are rendered and recognized
func (c RunConfig) OCREnabled() bool {
	return c.Mode == ModeOCR || c.Mode == ModeHybrid
}

// XFAOptions returns the clean transform settings
func (c RunConfig) XFAOptions() xfa.Options {
	table := xfa.DefaultPruneTable()
	if len(c.XFAPrune) > 0 {
		table = table.WithNames(c.XFAPrune...)
	}
	return xfa.Options{Prune: table, Separator: c.XFASeparator}
}

// String returns a string representation of the configuration
func (c RunConfig) String() string {
	return fmt.Sprintf("RunConfig{Mode: %s, XFA: %s, Lang: %s, DPI: %d, Range: %q, Timeout: %s, File: %q}",
		c.Mode, c.XFA, c.Lang, c.DPI, c.PageRange, c.Timeout, c.File)
}

// Package config loads salesboard settings from the environment, an optional
// .env file and an optional charts YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/dgnsrekt/salesboard/internal/chart"
	"github.com/joho/godotenv"
)

const (
	SurfaceBrowser = "browser"
	SurfacePNG     = "png"
)

// Config holds all configuration for the salesboard controller.
type Config struct {
	// Backend serving the chart data endpoints.
	BackendURL string

	// Control API and host page listener.
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	PublicURL        string

	// Rendering surface: "browser" drives a Chromium tab, "png" writes files.
	Surface       string
	CDPAddress    string
	CDPPort       int
	LaunchBrowser bool
	Headless      bool
	ProfileDir    string
	EvalTimeoutMS int
	PNGDir        string
	PNGWidth      int
	PNGHeight     int

	SnapshotDir string
	LogLevel    string
	LogFile     string

	// Cycle events are appended under JournalDir when JournalEnabled.
	JournalEnabled bool
	JournalDir     string
	JournalMaxMB   int
	// NotifyURL receives a plain-text POST per failed cycle when set.
	NotifyURL string

	ChartsFile string
	Companies  []string
	// Inputs seeds the filter inputs of the png surface.
	Inputs map[string]string
	Charts []chart.Spec
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BackendURL:       getEnvOrDefault("SALESBOARD_BACKEND_URL", "http://127.0.0.1:5000"),
		BindAddr:         getEnvOrDefault("SALESBOARD_BIND_ADDR", "127.0.0.1:8190"),
		PortCandidates:   splitList(getEnvOrDefault("SALESBOARD_PORT_CANDIDATES", "8191,8192,8193")),
		PortAutoFallback: getEnvBoolOrDefault("SALESBOARD_PORT_AUTO_FALLBACK", true),
		PublicURL:        os.Getenv("SALESBOARD_PUBLIC_URL"),
		Surface:          strings.ToLower(getEnvOrDefault("SALESBOARD_SURFACE", SurfaceBrowser)),
		CDPAddress:       getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:          getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		LaunchBrowser:    getEnvBoolOrDefault("SALESBOARD_LAUNCH_BROWSER", true),
		Headless:         getEnvBoolOrDefault("SALESBOARD_HEADLESS", false),
		ProfileDir:       getEnvOrDefault("SALESBOARD_PROFILE_DIR", "./browser_profile"),
		EvalTimeoutMS:    getEnvIntOrDefault("SALESBOARD_EVAL_TIMEOUT_MS", 10000),
		PNGDir:           getEnvOrDefault("SALESBOARD_PNG_DIR", "./charts"),
		PNGWidth:         getEnvIntOrDefault("SALESBOARD_PNG_WIDTH", 1024),
		PNGHeight:        getEnvIntOrDefault("SALESBOARD_PNG_HEIGHT", 576),
		SnapshotDir:      getEnvOrDefault("SNAPSHOT_DIR", "./snapshots"),
		LogLevel:         strings.ToLower(getEnvOrDefault("SALESBOARD_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("SALESBOARD_LOG_FILE", "logs/salesboard.log"),
		JournalEnabled:   getEnvBoolOrDefault("SALESBOARD_JOURNAL_ENABLED", true),
		JournalDir:       getEnvOrDefault("SALESBOARD_JOURNAL_DIR", "./journal"),
		JournalMaxMB:     getEnvIntOrDefault("SALESBOARD_JOURNAL_MAX_MB", 50),
		NotifyURL:        os.Getenv("SALESBOARD_NOTIFY_URL"),
		ChartsFile:       os.Getenv("SALESBOARD_CHARTS_CONFIG"),
		Companies:        splitList(os.Getenv("SALESBOARD_COMPANIES")),
	}
	if cfg.EvalTimeoutMS < 1000 {
		cfg.EvalTimeoutMS = 1000
	}
	if cfg.Surface != SurfaceBrowser && cfg.Surface != SurfacePNG {
		return nil, fmt.Errorf("config: SALESBOARD_SURFACE must be %q or %q, got %q", SurfaceBrowser, SurfacePNG, cfg.Surface)
	}

	inputs, err := parseInputs(os.Getenv("SALESBOARD_INPUTS"))
	if err != nil {
		return nil, err
	}
	cfg.Inputs = inputs
	if len(cfg.Companies) > 0 {
		if _, set := cfg.Inputs["company_dropdown"]; !set {
			cfg.Inputs["company_dropdown"] = cfg.Companies[0]
		}
	}

	cfg.Charts = DefaultCharts()
	if cfg.ChartsFile != "" {
		cfg.Charts, err = LoadCharts(cfg.ChartsFile, cfg.Charts)
		if err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the chromedp remote allocator.
func (c *Config) CDPURL() string {
	return "http://" + c.CDPAddress + ":" + strconv.Itoa(c.CDPPort)
}

// PageURL returns the URL the browser loads the dashboard from once the
// listener is bound to bindAddr.
func (c *Config) PageURL(bindAddr string) string {
	if c.PublicURL != "" {
		return strings.TrimRight(c.PublicURL, "/") + "/"
	}
	return "http://" + bindAddr + "/"
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		slog.Warn("config ignoring non-integer value", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		slog.Warn("config ignoring non-boolean value", "key", key, "value", val)
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseInputs reads "id=value,id=value".
func parseInputs(s string) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range splitList(s) {
		id, value, ok := strings.Cut(pair, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("config: SALESBOARD_INPUTS entry %q is not id=value", pair)
		}
		out[id] = strings.TrimSpace(value)
	}
	return out, nil
}

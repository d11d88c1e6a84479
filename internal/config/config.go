package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Surface kinds.
const (
	SurfaceWhatsAppWeb = "whatsapp-web"
	SurfaceTelegram    = "telegram"
)

// Config is the root configuration for wabot. It is loaded once at startup
// and never modified afterwards.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Chat       ChatConfig       `json:"chat"`
	Generation GenerationConfig `json:"generation"`
	Delivery   DeliveryConfig   `json:"delivery"`
	Monitor    MonitorConfig    `json:"monitor"`
	Browser    BrowserConfig    `json:"browser"`
	Telegram   TelegramConfig   `json:"telegram"`
	Store      StoreConfig      `json:"store"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`          // debug | info | warn | error
	LogFile  string `json:"logFile,omitempty"` // optional log file path
}

type ChatConfig struct {
	Surface          string `json:"surface"` // "whatsapp-web" | "telegram"
	Name             string `json:"name"`    // chat to open / watch
	MentionTag       string `json:"mentionTag"`
	MentionDelimiter string `json:"mentionDelimiter,omitempty"`
}

type GenerationConfig struct {
	URL             string   `json:"url"`
	Model           string   `json:"model"`
	TimeoutSeconds  int      `json:"timeoutSeconds"`
	ReasoningBegin  string   `json:"reasoningBegin,omitempty"`
	ReasoningEnd    string   `json:"reasoningEnd,omitempty"`
	ThinkingPhrases []string `json:"thinkingPhrases,omitempty"`
}

type DeliveryConfig struct {
	MaxRetries      int      `json:"maxRetries"`
	RetryDelayMs    int      `json:"retryDelayMs"`
	LocateTimeoutMs int      `json:"locateTimeoutMs"`
	SettleMs        int      `json:"settleMs"`
	InjectOrder     []string `json:"injectOrder,omitempty"` // sendkeys | property | keyboard
}

type MonitorConfig struct {
	PollIntervalMs int `json:"pollIntervalMs"`
	ErrorBackoffMs int `json:"errorBackoffMs"`
	ReplyGapMs     int `json:"replyGapMs"`
}

type BrowserConfig struct {
	ProfileDir      string `json:"profileDir,omitempty"`
	Headless        bool   `json:"headless"`
	SelectorsFile   string `json:"selectorsFile,omitempty"` // YAML selector overrides
	SkipLoginPrompt bool   `json:"skipLoginPrompt"`
	ActionTimeoutMs int    `json:"actionTimeoutMs"`
}

type TelegramConfig struct {
	Token       string `json:"token,omitempty"`
	History     int    `json:"history"`
	APIEndpoint string `json:"apiEndpoint,omitempty"` // e.g. a local Bot API server
}

type StoreConfig struct {
	Enabled bool   `json:"enabled"`
	DBPath  string `json:"dbPath"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
	Path    string `json:"path"`
}

// Millis converts a millisecond config value to a Duration.
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// DefaultConfigDir returns the default config directory (~/.wabot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wabot"
	}
	return filepath.Join(home, ".wabot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads, expands and validates the config file. The result is what the
// bot runs with and must not be written back with Save.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Resolve(raw)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", ExpandPath(path), err)
	}
	return cfg, nil
}

// LoadRaw reads the config file over the defaults without expanding
// ${VAR} references or ~/ paths. Edits made on it keep those references when
// saved.
func LoadRaw(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve returns a copy of raw with environment variables substituted
// (${VAR} and ${VAR:-default}) and ~/ paths expanded, then validates it.
// raw is not modified.
func Resolve(raw *Config) (*Config, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot marshal config: %w", err)
	}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse expanded config: %w", err)
	}

	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Browser.ProfileDir = ExpandPath(cfg.Browser.ProfileDir)
	cfg.Browser.SelectorsFile = ExpandPath(cfg.Browser.SelectorsFile)
	cfg.Store.DBPath = ExpandPath(cfg.Store.DBPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	switch cfg.Chat.Surface {
	case SurfaceWhatsAppWeb:
	case SurfaceTelegram:
		if cfg.Telegram.Token == "" {
			errs = append(errs, "telegram.token is required for the telegram surface")
		}
	default:
		errs = append(errs, "chat.surface must be one of: whatsapp-web, telegram")
	}
	if strings.TrimSpace(cfg.Chat.Name) == "" {
		errs = append(errs, "chat.name is required")
	}
	if strings.TrimSpace(cfg.Chat.MentionTag) == "" {
		errs = append(errs, "chat.mentionTag is required")
	}

	if u, err := url.Parse(cfg.Generation.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "generation.url must be an http(s) URL")
	}
	if cfg.Generation.Model == "" {
		errs = append(errs, "generation.model is required")
	}
	if cfg.Generation.TimeoutSeconds < 1 || cfg.Generation.TimeoutSeconds > 600 {
		errs = append(errs, "generation.timeoutSeconds must be between 1 and 600")
	}

	if cfg.Delivery.MaxRetries < 1 || cfg.Delivery.MaxRetries > 20 {
		errs = append(errs, "delivery.maxRetries must be between 1 and 20")
	}
	if cfg.Delivery.RetryDelayMs < 0 || cfg.Delivery.LocateTimeoutMs < 0 || cfg.Delivery.SettleMs < 0 {
		errs = append(errs, "delivery durations must be >= 0")
	}
	for _, m := range cfg.Delivery.InjectOrder {
		switch m {
		case "sendkeys", "property", "keyboard":
		default:
			errs = append(errs, fmt.Sprintf("delivery.injectOrder: unknown method %q", m))
		}
	}

	if cfg.Monitor.PollIntervalMs < 100 {
		errs = append(errs, "monitor.pollIntervalMs must be >= 100")
	}
	if cfg.Monitor.ErrorBackoffMs < 100 {
		errs = append(errs, "monitor.errorBackoffMs must be >= 100")
	}
	if cfg.Monitor.ReplyGapMs < 0 {
		errs = append(errs, "monitor.replyGapMs must be >= 0")
	}

	if cfg.Store.Enabled && cfg.Store.DBPath == "" {
		errs = append(errs, "store.dbPath is required when the store is enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		errs = append(errs, "metrics.listen is required when metrics are enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

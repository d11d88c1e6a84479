package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_UnknownSurface(t *testing.T) {
	cfg := Defaults()
	cfg.Chat.Surface = "signal"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown surface")
	}
}

func TestValidate_TelegramNeedsToken(t *testing.T) {
	cfg := Defaults()
	cfg.Chat.Surface = SurfaceTelegram
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for telegram surface without token")
	}

	cfg.Telegram.Token = "123456:abcdef"
	if err := Validate(cfg); err != nil {
		t.Fatalf("telegram with token should be valid: %v", err)
	}
}

func TestValidate_EmptyMentionTag(t *testing.T) {
	cfg := Defaults()
	cfg.Chat.MentionTag = "   "
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for blank mention tag")
	}
}

func TestValidate_EmptyChatName(t *testing.T) {
	cfg := Defaults()
	cfg.Chat.Name = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty chat name")
	}
}

func TestValidate_GenerationURL(t *testing.T) {
	for _, u := range []string{"", "localhost:11434", "ftp://host/api/generate", "http://"} {
		cfg := Defaults()
		cfg.Generation.URL = u
		if err := Validate(cfg); err == nil {
			t.Errorf("expected error for generation url %q", u)
		}
	}
}

func TestValidate_GenerationTimeout_Boundary(t *testing.T) {
	cfg := Defaults()

	cfg.Generation.TimeoutSeconds = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for timeoutSeconds=0")
	}

	cfg.Generation.TimeoutSeconds = 1
	if err := Validate(cfg); err != nil {
		t.Fatalf("timeoutSeconds=1 should be valid: %v", err)
	}

	cfg.Generation.TimeoutSeconds = 600
	if err := Validate(cfg); err != nil {
		t.Fatalf("timeoutSeconds=600 should be valid: %v", err)
	}
}

func TestValidate_MaxRetries(t *testing.T) {
	cfg := Defaults()
	cfg.Delivery.MaxRetries = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxRetries=0")
	}

	cfg.Delivery.MaxRetries = 21
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for maxRetries=21")
	}
}

func TestValidate_UnknownInjectMethod(t *testing.T) {
	cfg := Defaults()
	cfg.Delivery.InjectOrder = []string{"sendkeys", "telepathy"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown inject method")
	}
}

func TestValidate_PollInterval(t *testing.T) {
	cfg := Defaults()
	cfg.Monitor.PollIntervalMs = 10
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for pollIntervalMs=10")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidate_StoreNeedsPath(t *testing.T) {
	cfg := Defaults()
	cfg.Store.DBPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled store without dbPath")
	}

	cfg.Store.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled store should not need dbPath: %v", err)
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.Chat.Name = "Family"
	original.Chat.MentionTag = "@Ravi"

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if loaded.Chat.Name != "Family" || loaded.Chat.MentionTag != "@Ravi" {
		t.Fatalf("unexpected chat config: %+v", loaded.Chat)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"chat": {"surface": "whatsapp-web", "name": "Team", "mentionTag": "@helper"}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Generation.Model != "deepseek-r1:1.5b" {
		t.Fatalf("expected default model, got %q", cfg.Generation.Model)
	}
	if cfg.Delivery.MaxRetries != 3 {
		t.Fatalf("expected default maxRetries 3, got %d", cfg.Delivery.MaxRetries)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	// Invalid: maxRetries=0
	content := `{
		"delivery": {
			"maxRetries": 0
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(cfgFile)
	if err == nil {
		t.Fatal("expected validation error for maxRetries=0")
	}
}

func TestLoad_ExpandsHomePaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{"store": {"enabled": true, "dbPath": "~/markers.db"}}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.DBPath != filepath.Join(home, "markers.db") {
		t.Fatalf("expected expanded path, got %q", cfg.Store.DBPath)
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "generation.model")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "deepseek-r1:1.5b" {
		t.Fatalf("expected 'deepseek-r1:1.5b', got %v", val)
	}

	val, err = GetByPath(cfg, "delivery.injectOrder.1")
	if err != nil {
		t.Fatalf("get array element: %v", err)
	}
	if val != "property" {
		t.Fatalf("expected 'property', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	_, err := GetByPath(cfg, "nonexistent.path")
	if err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_ValidPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "chat.mentionTag", "@Ravi"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Chat.MentionTag != "@Ravi" {
		t.Fatalf("expected '@Ravi', got %q", cfg.Chat.MentionTag)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "store.enabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if cfg.Store.Enabled {
		t.Fatal("expected store.enabled=false")
	}
}

func TestSetByPath_IntConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "delivery.maxRetries", "5"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.Delivery.MaxRetries != 5 {
		t.Fatalf("expected 5, got %d", cfg.Delivery.MaxRetries)
	}
}

func TestSetByPath_ConvertsByFieldType(t *testing.T) {
	tests := []struct {
		path  string
		value string
		check func(*Config) bool
	}{
		{"chat.name", "-1001234567890", func(c *Config) bool { return c.Chat.Name == "-1001234567890" }},
		{"chat.mentionTag", "4242", func(c *Config) bool { return c.Chat.MentionTag == "4242" }},
		{"telegram.token", "123456", func(c *Config) bool { return c.Telegram.Token == "123456" }},
		{"telegram.history", "10", func(c *Config) bool { return c.Telegram.History == 10 }},
		{"general.logLevel", "true", func(c *Config) bool { return c.General.LogLevel == "true" }},
		{"delivery.injectOrder", "property, sendkeys", func(c *Config) bool {
			return len(c.Delivery.InjectOrder) == 2 &&
				c.Delivery.InjectOrder[0] == "property" && c.Delivery.InjectOrder[1] == "sendkeys"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			cfg := Defaults()
			if err := SetByPath(cfg, tt.path, tt.value); err != nil {
				t.Fatalf("set %s=%s: %v", tt.path, tt.value, err)
			}
			if !tt.check(cfg) {
				t.Fatalf("%s not set to %q: %+v", tt.path, tt.value, cfg)
			}
		})
	}
}

func TestSetByPath_Errors(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		value string
	}{
		{"bad bool", "store.enabled", "maybe"},
		{"bad int", "delivery.maxRetries", "three"},
		{"unknown key", "chat.nickname", "x"},
		{"unknown section", "nope.name", "x"},
		{"section path", "chat", "x"},
		{"through leaf", "chat.name.first", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			if err := SetByPath(cfg, tt.path, tt.value); err == nil {
				t.Fatalf("expected error for %s=%s", tt.path, tt.value)
			}
			if cfg.Chat.Name != Defaults().Chat.Name || !cfg.Store.Enabled {
				t.Fatalf("config modified by failed set: %+v", cfg)
			}
		})
	}
}

// --- Raw load / resolve ---

func TestLoadRaw_KeepsReferences(t *testing.T) {
	t.Setenv("RAW_TEST_TOKEN", "123456:secret")
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"chat":{"surface":"telegram"},"telegram":{"token":"${RAW_TEST_TOKEN}"}}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	raw, err := LoadRaw(path)
	if err != nil {
		t.Fatalf("load raw: %v", err)
	}
	if raw.Telegram.Token != "${RAW_TEST_TOKEN}" {
		t.Fatalf("raw token expanded: %q", raw.Telegram.Token)
	}
	if raw.Store.DBPath != Defaults().Store.DBPath {
		t.Fatalf("raw db path expanded: %q", raw.Store.DBPath)
	}

	resolved, err := Resolve(raw)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Telegram.Token != "123456:secret" {
		t.Fatalf("resolved token = %q", resolved.Telegram.Token)
	}
	if raw.Telegram.Token != "${RAW_TEST_TOKEN}" {
		t.Fatalf("resolve modified raw config: %q", raw.Telegram.Token)
	}
}

func TestResolve_RejectsInvalid(t *testing.T) {
	raw := Defaults()
	raw.Chat.MentionTag = ""
	if _, err := Resolve(raw); err == nil {
		t.Fatal("expected validation error")
	}
}

// --- Sanitize ---

func TestSanitize_MasksSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Telegram.Token = "123456789:ABCdefGHIjklMNOpqrSTUvwxyz"

	sanitized := Sanitize(cfg)

	if sanitized.Telegram.Token == cfg.Telegram.Token {
		t.Fatal("telegram token should be masked")
	}
	// Verify original is untouched
	if cfg.Telegram.Token != "123456789:ABCdefGHIjklMNOpqrSTUvwxyz" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortSecret(t *testing.T) {
	cfg := Defaults()
	cfg.Telegram.Token = "short"
	sanitized := Sanitize(cfg)
	if sanitized.Telegram.Token != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Telegram.Token)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if len(paths) == 0 {
		t.Fatal("expected non-empty paths")
	}

	for _, expected := range []string{"chat.mentionTag", "general.logLevel", "monitor.pollIntervalMs", "store.enabled"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars_SimpleSubstitution(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "123:abc")
	result := ExpandEnvVars(`{"token": "${TEST_BOT_TOKEN}"}`)
	expected := `{"token": "123:abc"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DefaultValue(t *testing.T) {
	os.Unsetenv("NONEXISTENT_VAR_12345")
	result := ExpandEnvVars(`{"model": "${NONEXISTENT_VAR_12345:-llama3}"}`)
	expected := `{"model": "llama3"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_SetVarOverridesDefault(t *testing.T) {
	t.Setenv("MY_MODEL", "qwen")
	result := ExpandEnvVars(`{"model": "${MY_MODEL:-llama3}"}`)
	expected := `{"model": "qwen"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_MultipleVars(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "11434")
	result := ExpandEnvVars(`"${HOST}:${PORT}"`)
	expected := `"localhost:11434"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_UnsetVarNoDefault_KeepsOriginal(t *testing.T) {
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")
	result := ExpandEnvVars(`"${TOTALLY_UNSET_VAR_XYZ}"`)
	expected := `"${TOTALLY_UNSET_VAR_XYZ}"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("EMPTY_VAR", "")
	result := ExpandEnvVars(`"${EMPTY_VAR:-fallback}"`)
	expected := `"fallback"`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestExpandEnvVars_DollarSignWithoutBraces(t *testing.T) {
	input := `"$HOME is not substituted"`
	result := ExpandEnvVars(input)
	if result != input {
		t.Fatalf("expected no change for bare $VAR, got %q", result)
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_WABOT_TAG", "@Ravi")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"chat": {
			"surface": "whatsapp-web",
			"name": "Family",
			"mentionTag": "${TEST_WABOT_TAG}"
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chat.MentionTag != "@Ravi" {
		t.Fatalf("expected mention tag '@Ravi', got %q", cfg.Chat.MentionTag)
	}
}

// --- Defaults ---

func TestDefaults_ReturnsValidConfig(t *testing.T) {
	cfg := Defaults()
	if cfg == nil {
		t.Fatal("defaults returned nil")
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.Generation.URL != "http://localhost:11434/api/generate" {
		t.Fatalf("unexpected default generation url %q", cfg.Generation.URL)
	}
	if Millis(cfg.Monitor.PollIntervalMs) != 3*time.Second {
		t.Fatalf("default poll interval should be 3s, got %v", Millis(cfg.Monitor.PollIntervalMs))
	}
}

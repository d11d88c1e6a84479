package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel: "info",
		},
		Chat: ChatConfig{
			Surface:          SurfaceWhatsAppWeb,
			Name:             "My Group",
			MentionTag:       "@bot",
			MentionDelimiter: "@",
		},
		Generation: GenerationConfig{
			URL:            "http://localhost:11434/api/generate",
			Model:          "deepseek-r1:1.5b",
			TimeoutSeconds: 30,
			ReasoningBegin: "<think>",
			ReasoningEnd:   "</think>",
		},
		Delivery: DeliveryConfig{
			MaxRetries:      3,
			RetryDelayMs:    2000,
			LocateTimeoutMs: 5000,
			SettleMs:        1000,
			InjectOrder:     []string{"sendkeys", "property", "keyboard"},
		},
		Monitor: MonitorConfig{
			PollIntervalMs: 3000,
			ErrorBackoffMs: 5000,
			ReplyGapMs:     2000,
		},
		Browser: BrowserConfig{
			ProfileDir:      "~/.wabot/chrome-profile",
			Headless:        false,
			ActionTimeoutMs: 10000,
		},
		Telegram: TelegramConfig{
			History: 50,
		},
		Store: StoreConfig{
			Enabled: true,
			DBPath:  "~/.wabot/wabot.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9464",
			Path:    "/metrics",
		},
	}
}

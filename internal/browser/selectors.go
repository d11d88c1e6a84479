package browser

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SelectorSet contains the CSS selectors used to drive a chat web client.
// Every list is tried in order; the first selector that matches wins.
type SelectorSet struct {
	URL       string   `yaml:"url"`
	Messages  []string `yaml:"messages"`  // inbound message rows
	Input     []string `yaml:"input"`     // editable compose box
	Send      []string `yaml:"send"`      // send button
	SearchBox []string `yaml:"searchBox"` // chat list search
}

// WhatsAppSelectors returns the default selectors for WhatsApp Web.
func WhatsAppSelectors() SelectorSet {
	return SelectorSet{
		URL:      "https://web.whatsapp.com",
		Messages: []string{"div[class*='message-in']"},
		Input: []string{
			"div[contenteditable='true'][data-tab='10']",
			"footer div[contenteditable='true']",
			"div[class*='_3Uu1_']",
			"div[title='Type a message']",
		},
		Send: []string{
			"span[data-icon='send']",
			"button[aria-label='Send']",
		},
		SearchBox: []string{
			"div[contenteditable='true'][data-tab='3']",
		},
	}
}

// LoadSelectors reads a YAML selector profile and overlays it on the WhatsApp
// defaults. Fields left out of the file keep their default. An empty path
// returns the defaults.
func LoadSelectors(path string, logger *slog.Logger) (SelectorSet, error) {
	sel := WhatsAppSelectors()
	if path == "" {
		return sel, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors file: %w", err)
	}

	var override SelectorSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return sel, fmt.Errorf("parse selectors file %s: %w", path, err)
	}

	if override.URL != "" {
		sel.URL = override.URL
	}
	if len(override.Messages) > 0 {
		sel.Messages = override.Messages
	}
	if len(override.Input) > 0 {
		sel.Input = override.Input
	}
	if len(override.Send) > 0 {
		sel.Send = override.Send
	}
	if len(override.SearchBox) > 0 {
		sel.SearchBox = override.SearchBox
	}

	logger.Info("loaded selector profile", "path", path)
	return sel, nil
}

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"wabot/internal/domain"
	"wabot/internal/textclean"
)

const (
	ollamaDefaultURL   = "http://localhost:11434/api/generate"
	ollamaDefaultModel = "deepseek-r1:1.5b"
	ollamaTimeout      = 30 * time.Second
)

// User-visible replies substituted when no answer can be produced.
const (
	MsgUnavailable = "⚠️ Unable to generate a response at this time."
	MsgUnexpected  = "⚠️ An unexpected error occurred"
	MsgEmpty       = "⚠️ No response generated"
)

// DefaultThinkingPhrases are sent while the model is working.
var DefaultThinkingPhrases = []string{
	"**Thinking...**",
	"**Processing...**",
	"**Analyzing...**",
	"**Let me think...**",
}

// Ollama implements domain.Generator against an Ollama /api/generate endpoint.
type Ollama struct {
	url       string
	model     string
	phrases   []string
	extractor *Extractor
	client    *http.Client
	logger    *slog.Logger
}

type OllamaConfig struct {
	URL             string // full endpoint, e.g. http://localhost:11434/api/generate
	Model           string
	Timeout         time.Duration
	ThinkingPhrases []string
	ReasoningBegin  string
	ReasoningEnd    string
	Logger          *slog.Logger
}

func NewOllama(cfg OllamaConfig) *Ollama {
	if cfg.Timeout <= 0 {
		cfg.Timeout = ollamaTimeout
	}
	return NewOllamaWithClient(cfg, SharedHTTPClient(cfg.Timeout))
}

func NewOllamaWithClient(cfg OllamaConfig, client *http.Client) *Ollama {
	if cfg.URL == "" {
		cfg.URL = ollamaDefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = ollamaDefaultModel
	}
	if len(cfg.ThinkingPhrases) == 0 {
		cfg.ThinkingPhrases = DefaultThinkingPhrases
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: ollamaTimeout}
	}
	return &Ollama{
		url:       cfg.URL,
		model:     cfg.Model,
		phrases:   cfg.ThinkingPhrases,
		extractor: NewExtractor(cfg.ReasoningBegin, cfg.ReasoningEnd),
		client:    client,
		logger:    cfg.Logger,
	}
}

func (o *Ollama) Model() string { return o.model }

// Healthy probes GET /api/tags on the endpoint's host.
func (o *Ollama) Healthy(ctx context.Context) error {
	u, err := url.Parse(o.url)
	if err != nil {
		return fmt.Errorf("parse generation url: %w", err)
	}
	u.Path = "/api/tags"
	u.RawQuery = ""

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// generateRequest matches the Ollama /api/generate request body.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Generate never fails. Transport problems and unexpected errors become a
// canned Final so the caller always has something to post.
func (o *Ollama) Generate(ctx context.Context, prompt string) (res domain.GenerationResult) {
	res.Thinking = o.thinkingPhrase()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("unexpected error during generation", "panic", r)
			res.Final = MsgUnexpected
		}
	}()

	text, err := o.complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationUnavailable) {
			o.logger.Error("generation request failed", "err", err)
			res.Final = MsgUnavailable
		} else {
			o.logger.Error("unexpected error during generation", "err", err)
			res.Final = MsgUnexpected
		}
		return res
	}

	reasoning, final := o.extractor.Extract(text)
	res.Reasoning = reasoning
	res.Final = textclean.Sanitize(final)
	if res.Final == "" {
		res.Final = MsgEmpty
	}
	return res
}

// complete sends one request and concatenates the streamed fragments.
func (o *Ollama) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Model: o.model, Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: ollama returned %d: %s", domain.ErrGenerationUnavailable, resp.StatusCode, string(respBody))
	}

	var full strings.Builder
	fragments := NewFragmentReader(resp.Body)
	for frag := range fragments.All() {
		full.WriteString(frag.Response)
	}
	if err := fragments.Err(); err != nil {
		return "", fmt.Errorf("%w: read stream: %w", domain.ErrGenerationUnavailable, err)
	}

	o.logger.Debug("generation complete",
		"model", o.model,
		"chars", full.Len(),
		"duration", time.Since(start),
	)
	return full.String(), nil
}

func (o *Ollama) thinkingPhrase() string {
	return o.phrases[rand.IntN(len(o.phrases))]
}

package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wabot/internal/domain"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	defaultActionTimeout = 10 * time.Second
	openChatTimeout      = 30 * time.Second
	searchSettle         = 2 * time.Second
	pollEvery            = 250 * time.Millisecond
)

// WhatsApp drives WhatsApp Web inside a chromedp context. It implements
// domain.Inbox and domain.InputSurface.
type WhatsApp struct {
	browserCtx    context.Context
	sel           SelectorSet
	actionTimeout time.Duration
	logger        *slog.Logger

	input string // selector matched by the last LocateInput
}

type WhatsAppConfig struct {
	Selectors     SelectorSet
	ActionTimeout time.Duration // bound for a single browser action without its own deadline
	Logger        *slog.Logger
}

// NewWhatsApp binds a surface to a chromedp context from Bridge.NewContext.
func NewWhatsApp(browserCtx context.Context, cfg WhatsAppConfig) *WhatsApp {
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = defaultActionTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &WhatsApp{
		browserCtx:    browserCtx,
		sel:           cfg.Selectors,
		actionTimeout: cfg.ActionTimeout,
		logger:        cfg.Logger,
	}
}

// Open starts the browser and loads the client.
func (w *WhatsApp) Open() error {
	// The first Run must use the browser context itself so the browser
	// outlives this call.
	if err := chromedp.Run(w.browserCtx, chromedp.Navigate(w.sel.URL)); err != nil {
		return fmt.Errorf("open %s: %w", w.sel.URL, err)
	}
	return nil
}

// OpenChat searches for the chat by name and opens it.
func (w *WhatsApp) OpenChat(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, openChatTimeout)
	defer cancel()

	search, err := w.firstMatch(ctx, w.sel.SearchBox)
	if err != nil {
		return fmt.Errorf("%w: %q: search box: %w", domain.ErrChatNotFound, name, err)
	}
	err = w.run(ctx,
		chromedp.Click(search, chromedp.ByQuery),
		chromedp.SendKeys(search, name, chromedp.ByQuery),
		chromedp.Sleep(searchSettle),
		chromedp.SendKeys(search, kb.Enter, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", domain.ErrChatNotFound, name, err)
	}
	w.logger.Info("opened chat", "chat", name)
	return nil
}

// Inbound returns the text of every rendered inbound message row.
func (w *WhatsApp) Inbound(ctx context.Context) ([]string, error) {
	var rows []string
	js := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => e.innerText || e.textContent || "")`,
		jsString(strings.Join(w.sel.Messages, ", ")))
	if err := w.run(ctx, chromedp.Evaluate(js, &rows)); err != nil {
		return nil, fmt.Errorf("read messages: %w", err)
	}
	return rows, nil
}

// LocateInput waits until one of the input selectors matches, bounded by ctx.
func (w *WhatsApp) LocateInput(ctx context.Context) error {
	sel, err := w.firstMatch(ctx, w.sel.Input)
	if err != nil {
		w.input = ""
		return err
	}
	w.input = sel
	return nil
}

func (w *WhatsApp) ClearInput(ctx context.Context) error {
	return w.evalOnInput(ctx, `el.focus();
		document.execCommand('selectAll', false, null);
		document.execCommand('delete', false, null);`)
}

func (w *WhatsApp) Inject(ctx context.Context, method domain.InjectMethod, text string) error {
	if w.input == "" {
		return domain.ErrElementNotFound
	}
	switch method {
	case domain.InjectSendKeys:
		return w.run(ctx, chromedp.SendKeys(w.input, text, chromedp.ByQuery))
	case domain.InjectProperty:
		return w.evalOnInput(ctx, fmt.Sprintf(`el.focus();
			el.textContent = %s;
			el.dispatchEvent(new InputEvent('input', {bubbles: true}));`, jsString(text)))
	case domain.InjectKeyboard:
		return w.run(ctx,
			chromedp.Click(w.input, chromedp.ByQuery),
			chromedp.KeyEvent(text),
		)
	default:
		return fmt.Errorf("unknown inject method %q", method)
	}
}

func (w *WhatsApp) Commit(ctx context.Context, method domain.CommitMethod) error {
	if w.input == "" {
		return domain.ErrElementNotFound
	}
	switch method {
	case domain.CommitEnter:
		return w.run(ctx, chromedp.SendKeys(w.input, kb.Enter, chromedp.ByQuery))
	case domain.CommitSendButton:
		findCtx, cancel := context.WithTimeout(ctx, time.Second)
		send, err := w.firstMatch(findCtx, w.sel.Send)
		cancel()
		if err != nil {
			return err
		}
		return w.run(ctx, chromedp.Click(send, chromedp.ByQuery))
	case domain.CommitKeyEvent:
		return w.evalOnInput(ctx, `el.dispatchEvent(new KeyboardEvent('keydown',
			{key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true}));`)
	default:
		return fmt.Errorf("unknown commit method %q", method)
	}
}

// firstMatch polls until one selector in sels matches an element.
func (w *WhatsApp) firstMatch(ctx context.Context, sels []string) (string, error) {
	if len(sels) == 0 {
		return "", domain.ErrElementNotFound
	}
	js := fmt.Sprintf(`(function(sels) {
		for (const s of sels) { if (document.querySelector(s)) return s; }
		return "";
	})(%s)`, jsValue(sels))

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()
	for {
		var found string
		if err := w.run(ctx, chromedp.Evaluate(js, &found)); err == nil && found != "" {
			return found, nil
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %s", domain.ErrElementNotFound, strings.Join(sels, " | "))
		case <-ticker.C:
		}
	}
}

// evalOnInput runs body with el bound to the located input element.
func (w *WhatsApp) evalOnInput(ctx context.Context, body string) error {
	if w.input == "" {
		return domain.ErrElementNotFound
	}
	js := fmt.Sprintf(`(function() {
		const el = document.querySelector(%s);
		if (!el) return false;
		%s
		return true;
	})()`, jsString(w.input), body)

	var ok bool
	if err := w.run(ctx, chromedp.Evaluate(js, &ok)); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrElementNotFound, w.input)
	}
	return nil
}

// run executes actions on the browser while honoring ctx's cancellation and
// deadline. Without a deadline the action timeout applies.
func (w *WhatsApp) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(w.browserCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(w.actionTimeout)
	}
	runCtx, cancelDeadline := context.WithDeadline(runCtx, deadline)
	defer cancelDeadline()

	return chromedp.Run(runCtx, actions...)
}

// jsString renders s as a JavaScript string literal.
func jsString(s string) string {
	return jsValue(s)
}

func jsValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

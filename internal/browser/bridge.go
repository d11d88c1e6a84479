package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chromedp/chromedp"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Bridge owns the Chrome profile that keeps the chat client's session.
type Bridge struct {
	profileDir string
	headless   bool
	logger     *slog.Logger
}

// BridgeConfig holds configuration for the browser bridge.
type BridgeConfig struct {
	ProfileDir string // Chrome user data directory (persists cookies/sessions)
	Headless   bool   // Run headless (true) or with visible UI (false)
	Logger     *slog.Logger
}

func NewBridge(cfg BridgeConfig) *Bridge {
	if cfg.ProfileDir == "" {
		cfg.ProfileDir = DefaultProfileDir()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bridge{
		profileDir: cfg.ProfileDir,
		headless:   cfg.Headless,
		logger:     cfg.Logger,
	}
}

// DefaultProfileDir is ~/.wabot/chrome-profile.
func DefaultProfileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wabot", "chrome-profile")
	}
	return filepath.Join(home, ".wabot", "chrome-profile")
}

func (b *Bridge) ProfileDir() string { return b.profileDir }

// NewContext creates a chromedp context with the bridge's Chrome profile.
// The caller MUST call cancel() when done.
func (b *Bridge) NewContext(parentCtx context.Context) (context.Context, context.CancelFunc) {
	return b.newContext(parentCtx, b.headless)
}

func (b *Bridge) newContext(parentCtx context.Context, headless bool) (context.Context, context.CancelFunc) {
	if err := os.MkdirAll(b.profileDir, 0o755); err != nil {
		b.logger.Error("failed to create profile dir", "dir", b.profileDir, "err", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(b.profileDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.UserAgent(userAgent),
	)
	if headless {
		opts = append(opts, chromedp.Headless)
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parentCtx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			b.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	cancelAll := func() {
		taskCancel()
		allocCancel()
	}
	return taskCtx, cancelAll
}

// Login opens a visible browser on url and blocks until the user confirms on
// in that the session is authenticated. Cookies stay in the profile directory.
func (b *Bridge) Login(ctx context.Context, url string, in io.Reader, out io.Writer) error {
	b.logger.Info("opening browser for login", "url", url)

	taskCtx, cancel := b.newContext(ctx, false)
	defer cancel()

	if err := chromedp.Run(taskCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to login page: %w", err)
	}
	if err := WaitForConfirmation(ctx, in, out); err != nil {
		return err
	}

	b.logger.Info("login session saved", "profile", b.profileDir)
	return nil
}

// WaitForConfirmation prints the QR prompt and waits for a line on in.
func WaitForConfirmation(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprint(out, "Scan the QR code in the browser window and press Enter when ready.")

	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(in).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		fmt.Fprintln(out)
		if err != nil {
			return fmt.Errorf("read confirmation: %w", err)
		}
		return nil
	}
}

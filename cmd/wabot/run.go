package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wabot/internal/browser"
	"wabot/internal/channel"
	"wabot/internal/config"
	"wabot/internal/delivery"
	"wabot/internal/domain"
	"wabot/internal/metrics"
	"wabot/internal/monitor"
	"wabot/internal/provider"
	"wabot/internal/store"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Watch the configured chat and answer mentions",
		Long:  "Opens the chat surface, then polls it for new mentions until interrupted. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

// surface is an opened chat surface ready for the monitor loop.
type surface struct {
	inbox      domain.Inbox
	strategies []domain.DeliveryStrategy
	close      func()
}

func runBot(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	closeLog, err := setupLogger(cfg.General)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gen := provider.NewOllama(provider.OllamaConfig{
		URL:             cfg.Generation.URL,
		Model:           cfg.Generation.Model,
		Timeout:         time.Duration(cfg.Generation.TimeoutSeconds) * time.Second,
		ThinkingPhrases: cfg.Generation.ThinkingPhrases,
		ReasoningBegin:  cfg.Generation.ReasoningBegin,
		ReasoningEnd:    cfg.Generation.ReasoningEnd,
		Logger:          logger,
	})
	if err := gen.Healthy(ctx); err != nil {
		logger.Warn("generation endpoint unhealthy at startup", "url", cfg.Generation.URL, "err", err)
	} else {
		logger.Info("generation endpoint healthy", "model", gen.Model())
	}

	var markers domain.MarkerStore
	if cfg.Store.Enabled {
		st, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
		if err != nil {
			return fmt.Errorf("marker store: %w", err)
		}
		defer st.Close()
		markers = st
	}

	surf, err := openSurface(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		cancel()
		surf.close()
	}()

	agent := delivery.NewAgent(delivery.Config{
		Strategies: surf.strategies,
		MaxRetries: cfg.Delivery.MaxRetries,
		RetryDelay: config.Millis(cfg.Delivery.RetryDelayMs),
		Logger:     logger,
	})

	loop := monitor.NewLoop(monitor.LoopConfig{
		Chat:         cfg.Chat.Name,
		MentionTag:   cfg.Chat.MentionTag,
		Delimiter:    cfg.Chat.MentionDelimiter,
		Inbox:        surf.inbox,
		Generator:    gen,
		Deliverer:    agent,
		Markers:      markers,
		PollInterval: config.Millis(cfg.Monitor.PollIntervalMs),
		ErrorBackoff: config.Millis(cfg.Monitor.ErrorBackoffMs),
		ReplyGap:     config.Millis(cfg.Monitor.ReplyGapMs),
		Logger:       logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	if cfg.Metrics.Enabled {
		g.Go(func() error {
			logger.Info("metrics endpoint enabled", "listen", cfg.Metrics.Listen, "path", cfg.Metrics.Path)
			if err := metrics.Collector.Serve(gctx, cfg.Metrics.Listen, cfg.Metrics.Path); err != nil {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}

	logger.Info("wabot started. Press Ctrl+C to stop.", "surface", cfg.Chat.Surface, "chat", cfg.Chat.Name)
	err = g.Wait()
	logger.Info("shutting down")
	return err
}

// openSurface connects the configured chat surface and returns its inbox and
// delivery strategies. Any failure here is fatal for the process.
func openSurface(ctx context.Context, cfg *config.Config) (*surface, error) {
	switch cfg.Chat.Surface {
	case config.SurfaceTelegram:
		tg := channel.NewTelegram(channel.TelegramConfig{
			Token:       cfg.Telegram.Token,
			APIEndpoint: cfg.Telegram.APIEndpoint,
			Chat:        cfg.Chat.Name,
			History:     cfg.Telegram.History,
			Logger:      logger,
		})
		if err := tg.Start(ctx); err != nil {
			return nil, err
		}
		return &surface{inbox: tg, strategies: tg.Strategies(), close: tg.Wait}, nil

	default:
		sel, err := browser.LoadSelectors(cfg.Browser.SelectorsFile, logger)
		if err != nil {
			return nil, err
		}
		bridge := browser.NewBridge(browser.BridgeConfig{
			ProfileDir: cfg.Browser.ProfileDir,
			Headless:   cfg.Browser.Headless,
			Logger:     logger,
		})
		browserCtx, closeBrowser := bridge.NewContext(ctx)
		wa := browser.NewWhatsApp(browserCtx, browser.WhatsAppConfig{
			Selectors:     sel,
			ActionTimeout: config.Millis(cfg.Browser.ActionTimeoutMs),
			Logger:        logger,
		})

		if err := wa.Open(); err != nil {
			closeBrowser()
			return nil, err
		}
		if !cfg.Browser.SkipLoginPrompt {
			if err := browser.WaitForConfirmation(ctx, os.Stdin, os.Stderr); err != nil {
				closeBrowser()
				return nil, err
			}
		}
		if err := wa.OpenChat(ctx, cfg.Chat.Name); err != nil {
			closeBrowser()
			return nil, err
		}
		logger.Debug("browser profile", "dir", bridge.ProfileDir())

		strategies := delivery.UIStrategies(wa,
			injectOrder(cfg.Delivery.InjectOrder),
			config.Millis(cfg.Delivery.LocateTimeoutMs),
			config.Millis(cfg.Delivery.SettleMs),
		)
		return &surface{inbox: wa, strategies: strategies, close: closeBrowser}, nil
	}
}

func injectOrder(names []string) []domain.InjectMethod {
	if len(names) == 0 {
		return nil
	}
	out := make([]domain.InjectMethod, 0, len(names))
	for _, n := range names {
		out = append(out, domain.InjectMethod(n))
	}
	return out
}

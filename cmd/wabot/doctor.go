package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"wabot/internal/browser"
	"wabot/internal/config"
	"wabot/internal/provider"
	"wabot/internal/store"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your wabot installation",
		Long: `Verifies that wabot's configuration, generation endpoint, marker database
and browser profile are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("wabot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'wabot init' to create a default configuration.\n")
				return fmt.Errorf("config file missing")
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				fmt.Printf("\n%d passed, 1 failed\n", passed)
				return fmt.Errorf("config invalid")
			}
			printPass("Config validation", "valid")
			passed++

			quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

			// 3. Generation endpoint
			gen := provider.NewOllama(provider.OllamaConfig{
				URL:     cfg.Generation.URL,
				Model:   cfg.Generation.Model,
				Timeout: 5 * time.Second,
				Logger:  quiet,
			})
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err = gen.Healthy(ctx)
			cancel()
			if err != nil {
				printFail("Generation", err.Error())
				failed++
			} else {
				printPass("Generation", fmt.Sprintf("%s (%s)", cfg.Generation.URL, gen.Model()))
				passed++
			}

			// 4. Marker database
			if cfg.Store.Enabled {
				if err := checkDatabase(cfg.Store.DBPath, quiet); err != nil {
					printFail("Marker database", err.Error())
					failed++
				} else {
					printPass("Marker database", cfg.Store.DBPath)
					passed++
				}
			} else {
				printWarn("Marker database", "disabled (marker is lost on restart)")
				warned++
			}

			// 5. Surface specific checks
			switch cfg.Chat.Surface {
			case config.SurfaceWhatsAppWeb:
				dir := cfg.Browser.ProfileDir
				if dir == "" {
					dir = browser.DefaultProfileDir()
				}
				if info, err := os.Stat(dir); err != nil {
					printWarn("Browser profile", fmt.Sprintf("not found: %s (run 'wabot login')", dir))
					warned++
				} else if !info.IsDir() {
					printFail("Browser profile", fmt.Sprintf("not a directory: %s", dir))
					failed++
				} else {
					printPass("Browser profile", dir)
					passed++
				}

				if cfg.Browser.SelectorsFile != "" {
					if _, err := browser.LoadSelectors(cfg.Browser.SelectorsFile, quiet); err != nil {
						printFail("Selectors", err.Error())
						failed++
					} else {
						printPass("Selectors", cfg.Browser.SelectorsFile)
						passed++
					}
				}
			case config.SurfaceTelegram:
				printPass("Telegram", fmt.Sprintf("token set, chat %q", cfg.Chat.Name))
				passed++
			}

			// 6. Metrics port
			if cfg.Metrics.Enabled {
				if err := checkListen(cfg.Metrics.Listen); err != nil {
					printWarn("Metrics listen", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Listen, err))
					warned++
				} else {
					printPass("Metrics listen", cfg.Metrics.Listen+" available")
					passed++
				}
			}

			// 7. Log file writable
			if cfg.General.LogFile != "" {
				if err := os.MkdirAll(filepath.Dir(cfg.General.LogFile), 0o755); err != nil {
					printWarn("Log file", fmt.Sprintf("cannot create log directory: %v", err))
					warned++
				} else {
					printPass("Log file", cfg.General.LogFile)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running wabot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nwabot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! wabot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string, logger *slog.Logger) error {
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := st.Ping(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}
	return nil
}

func checkListen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"wabot/internal/config"

	"github.com/spf13/cobra"
)

var knownSurfaces = []struct {
	ID   string
	Desc string
}{
	{config.SurfaceWhatsAppWeb, "WhatsApp Web in a local Chrome window"},
	{config.SurfaceTelegram, "Telegram group through a bot token"},
}

func wizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Interactive setup: surface → chat → mention tag → model → save config",
		Long:  "Guides you through the chat surface, the chat to watch, the mention tag and the Ollama model. Writes config to the path used by --config or default.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := config.LoadRaw(cfgPath)
			if err != nil {
				cfg = config.Defaults()
			}
			if err := runWizard(os.Stdin, os.Stdout, cfg); err != nil {
				return err
			}
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "\nConfig saved to %s\n", cfgPath)
			if cfg.Chat.Surface == config.SurfaceWhatsAppWeb {
				fmt.Println("Next: run 'wabot login' to link WhatsApp Web, then 'wabot run'.")
			} else {
				fmt.Println("Next: add the bot to the group, then 'wabot run'.")
			}
			return nil
		},
	}
}

// runWizard asks for the settings a first run needs and writes them into cfg.
// An empty answer keeps the value shown in brackets. cfg is left unexpanded so
// ${VAR} answers are saved as references.
func runWizard(in io.Reader, out io.Writer, cfg *config.Config) error {
	reader := bufio.NewReader(in)
	prompt := func(def string) (string, error) {
		if def != "" {
			fmt.Fprintf(out, " [%s]: ", def)
		} else {
			fmt.Fprint(out, ": ")
		}
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		s := strings.TrimSpace(line)
		if s == "" {
			return def, nil
		}
		return s, nil
	}

	// Step 1: Surface
	fmt.Fprintln(out, "\n--- Step 1: Chat surface ---")
	defNum := "1"
	for i, s := range knownSurfaces {
		fmt.Fprintf(out, "  %d) %s (%s)\n", i+1, s.ID, s.Desc)
		if s.ID == cfg.Chat.Surface {
			defNum = fmt.Sprint(i + 1)
		}
	}
	fmt.Fprintf(out, "Choose surface (1-%d)", len(knownSurfaces))
	choice, err := prompt(defNum)
	if err != nil {
		return err
	}
	var idx int
	if n, _ := fmt.Sscanf(choice, "%d", &idx); n != 1 || idx < 1 || idx > len(knownSurfaces) {
		idx = 1
	}
	cfg.Chat.Surface = knownSurfaces[idx-1].ID
	if cfg.Chat.Surface == config.SurfaceTelegram {
		fmt.Fprint(out, "Telegram bot token (from @BotFather, or ${TELEGRAM_BOT_TOKEN})")
		tok, err := prompt(cfg.Telegram.Token)
		if err != nil {
			return err
		}
		cfg.Telegram.Token = tok
	}
	fmt.Fprintf(out, "  Using surface: %s\n", cfg.Chat.Surface)

	// Step 2: Chat
	fmt.Fprintln(out, "\n--- Step 2: Chat ---")
	fmt.Fprint(out, "Chat name as shown in the chat list (Telegram: title or numeric id)")
	if cfg.Chat.Name, err = prompt(cfg.Chat.Name); err != nil {
		return err
	}
	fmt.Fprint(out, "Mention tag that addresses the bot")
	if cfg.Chat.MentionTag, err = prompt(cfg.Chat.MentionTag); err != nil {
		return err
	}

	// Step 3: Model
	fmt.Fprintln(out, "\n--- Step 3: Generation ---")
	fmt.Fprint(out, "Ollama generate endpoint")
	if cfg.Generation.URL, err = prompt(cfg.Generation.URL); err != nil {
		return err
	}
	fmt.Fprint(out, "Model")
	if cfg.Generation.Model, err = prompt(cfg.Generation.Model); err != nil {
		return err
	}

	_, err = config.Resolve(cfg)
	return err
}

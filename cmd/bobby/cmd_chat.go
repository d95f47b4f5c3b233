package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/samshapley/bobby/internal/agent"
	"github.com/samshapley/bobby/internal/report"
)

var (
	promptStyle  = lipgloss.NewStyle().Bold(true)
	spinnerStyle = lipgloss.NewStyle().Faint(true)
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with Bobby about the data",
	Long: `Starts an interactive session with the analyst agent. It queries
the database on your behalf and can build markdown and PDF reports
as you talk. Conversation memory persists until you type 'clear'.

Commands inside the session: clear, exit.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	apiKey := cfg.Agent.APIKey
	if apiKey == "" {
		key, err := promptAPIKey()
		if err != nil {
			return err
		}
		apiKey = key
	}

	if _, err := os.Stat(cfg.Database.Path); err != nil {
		return fmt.Errorf("no database at %s; run 'bobby extract --import' first", cfg.Database.Path)
	}

	reports, err := report.NewManager(cfg.Reports.Dir, logger)
	if err != nil {
		return err
	}
	client := agent.NewClient(agent.ClientConfig{
		APIKey:    apiKey,
		BaseURL:   cfg.Agent.BaseURL,
		Model:     cfg.Agent.Model,
		MaxTokens: cfg.Agent.MaxTokens,
		Logger:    logger,
	})
	bobby := agent.NewAgent(client, cfg.Database.Path, reports, logger)

	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		renderer = nil
	}

	fmt.Println("Bobby is ready. Ask about the data, or ask for a report. Type 'exit' to leave.")
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("\n" + promptStyle.Render("you>") + " ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "clear":
			bobby.Reset()
			fmt.Println("Conversation cleared.")
			continue
		}

		// Ctrl-C aborts the in-flight turn, not the session.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		answer, err := chatTurn(ctx, bobby, input)
		stop()
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nInterrupted.")
				continue
			}
			fmt.Fprintln(os.Stderr, "Error:", err)
			continue
		}

		if renderer != nil {
			if out, rerr := renderer.Render(answer); rerr == nil {
				fmt.Print(out)
				continue
			}
		}
		fmt.Println(answer)
	}
}

func chatTurn(ctx context.Context, bobby *agent.Agent, input string) (string, error) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		frames := []string{"|", "/", "-", "\\"}
		for i := 0; ; i++ {
			select {
			case <-done:
				fmt.Print("\r\033[K")
				return
			case <-time.After(120 * time.Millisecond):
				fmt.Print("\r" + spinnerStyle.Render(frames[i%len(frames)]+" thinking..."))
			}
		}
	}()

	answer, err := bobby.Chat(ctx, input)
	close(done)
	wg.Wait()
	return answer, err
}

func promptAPIKey() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}
	fmt.Print("Anthropic API key: ")
	key, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	if len(key) == 0 {
		return "", fmt.Errorf("no API key provided")
	}
	return strings.TrimSpace(string(key)), nil
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zhouzirui/wp-fixit/backend/internal/app"
	"github.com/zhouzirui/wp-fixit/backend/internal/console"
)

var consolePlain bool

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start an interactive troubleshooting session",
	Long: `Start an interactive troubleshooting session.

The full-screen view shows the transcript, a loading indicator while the
assistant works, and the common-issue picker (Ctrl+P). Ctrl+R resets the
session. When stdin is not a terminal, or with --plain, a line-mode prompt is
used instead; it understands /presets, /preset <id>, /reset and /quit.`,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().BoolVar(&consolePlain, "plain", false, "use the line-mode prompt")
}

func runConsole(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	application, err := app.New(ctx, cfg, logger, app.Options{RequireGeneration: true})
	if err != nil {
		return err
	}
	defer application.Close()

	session, err := application.Chat.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() { _ = application.Chat.DeleteSession(context.Background(), session.ID()) }()

	if consolePlain || !term.IsTerminal(int(os.Stdin.Fd())) {
		return console.RunPlain(ctx, session, application.Presets, cmd.InOrStdin(), cmd.OutOrStdout())
	}

	program := tea.NewProgram(
		console.New(ctx, console.Config{Conversation: session, Presets: application.Presets}),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run console: %w", err)
	}
	return nil
}

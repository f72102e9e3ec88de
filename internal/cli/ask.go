package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/wp-fixit/backend/internal/app"
	"github.com/zhouzirui/wp-fixit/backend/internal/console"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
)

var askPreset string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the answer",
	Long: `Ask a single question and print the answer with its sources.

Examples:
  wpfixit ask "I see a 500 error after installing Jetpack"
  wpfixit ask --preset memory-limit`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askPreset, "preset", "p", "", "ask about a common issue by id")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" && askPreset == "" {
		return errors.New("a question or --preset is required")
	}

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

	var (
		done <-chan chat.Turn
		ok   bool
	)
	if askPreset != "" {
		issue, found := application.Presets.FindByID(askPreset)
		if !found {
			return fmt.Errorf("%w: %s", preset.ErrNotFound, askPreset)
		}
		done, ok = session.SubmitPreset(ctx, issue)
	} else {
		done, ok = session.Submit(ctx, question)
	}
	if !ok {
		return errors.New("question was not accepted")
	}

	select {
	case turn := <-done:
		console.PrintTurn(cmd.OutOrStdout(), turn)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/zhouzirui/wp-fixit/backend/internal/model/chat"
	"github.com/zhouzirui/wp-fixit/backend/internal/model/preset"
)

var (
	promptColor    = color.New(color.FgCyan, color.Bold)
	assistantColor = color.New(color.FgMagenta, color.Bold)
	sourceColor    = color.New(color.FgBlue)
	noticeColor    = color.New(color.FgYellow)
)

// RunPlain is the line-mode console for pipes and dumb terminals. Each line is
// submitted and the reply awaited before the next prompt. Lines starting with
// "/" are commands: /reset, /presets, /preset <id>, /quit.
func RunPlain(ctx context.Context, conv Conversation, presets preset.Store, in io.Reader, out io.Writer) error {
	if latest, ok := conv.Snapshot().Latest(); ok {
		PrintTurn(out, latest)
	}

	scanner := bufio.NewScanner(in)
	for {
		promptColor.Fprint(out, "\nYou> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := runCommand(ctx, conv, presets, line, out)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			continue
		}

		done, ok := conv.Submit(ctx, line)
		if !ok {
			noticeColor.Fprintln(out, "A request is already in progress.")
			continue
		}
		if err := await(ctx, done, out); err != nil {
			return err
		}
	}
}

func runCommand(ctx context.Context, conv Conversation, presets preset.Store, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/reset":
		conv.Reset()
		if latest, ok := conv.Snapshot().Latest(); ok {
			PrintTurn(out, latest)
		}
	case "/presets":
		PrintPresets(out, presets)
	case "/preset":
		if len(fields) < 2 {
			noticeColor.Fprintln(out, "usage: /preset <id>")
			return false, nil
		}
		issue, found := presets.FindByID(fields[1])
		if !found {
			noticeColor.Fprintf(out, "unknown preset %q\n", fields[1])
			return false, nil
		}
		done, ok := conv.SubmitPreset(ctx, issue)
		if !ok {
			noticeColor.Fprintln(out, "A request is already in progress.")
			return false, nil
		}
		fmt.Fprintf(out, "You> %s\n", issue.Prompt())
		return false, await(ctx, done, out)
	default:
		noticeColor.Fprintf(out, "unknown command %s (try /presets, /preset <id>, /reset, /quit)\n", fields[0])
	}
	return false, nil
}

func await(ctx context.Context, done <-chan chat.Turn, out io.Writer) error {
	select {
	case turn := <-done:
		PrintTurn(out, turn)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PrintTurn writes one assistant or user turn with numbered sources.
func PrintTurn(out io.Writer, turn chat.Turn) {
	if turn.Speaker == chat.SpeakerUser {
		promptColor.Fprint(out, "You: ")
	} else {
		assistantColor.Fprint(out, "WP-FixIt: ")
	}
	fmt.Fprintln(out, turn.Text)

	if len(turn.Citations) == 0 {
		return
	}
	fmt.Fprintln(out, "\nHelpful Resources:")
	for i, c := range turn.Citations {
		sourceColor.Fprintf(out, "  [%d] %s %s\n", i+1, c.DisplayTitle(), c.URL)
	}
}

// PrintPresets lists the catalog and support links.
func PrintPresets(out io.Writer, presets preset.Store) {
	fmt.Fprintln(out, "Common issues:")
	for _, issue := range presets.List() {
		fmt.Fprintf(out, "  %s %-16s %s: %s\n", issue.Icon, issue.ID, issue.Label, issue.Description)
	}
	if links := presets.Links(); len(links) > 0 {
		fmt.Fprintln(out, "Support tools:")
		for _, link := range links {
			sourceColor.Fprintf(out, "  %s: %s\n", link.Label, link.URL)
		}
	}
}

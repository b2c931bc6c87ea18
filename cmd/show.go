package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
)

var (
	limit int
	since string
)

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <content-id|->",
	Short: "Show the messages of one conversation",
	Long: `Display the stored messages of a conversation thread without contacting
the AI chat service. Use "-" for the general chat.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if key == "-" {
			key = internal.GeneralKey
		}

		var sinceTime time.Time
		if since != "" {
			parsed, err := parseSince(since, time.Now())
			if err != nil {
				return err
			}
			sinceTime = parsed
		}

		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		th, ok := store.Conversation(key)
		if !ok {
			return fmt.Errorf("no conversation for content %q (see 'creator-chat list')", key)
		}

		out := cmd.OutOrStdout()
		displayThreadHeader(out, th)

		messages := filterMessages(th.Messages, sinceTime, limit)
		for i, msg := range messages {
			displayMessage(out, i+1, msg, len(messages))
		}

		if hidden := len(th.Messages) - len(messages); hidden > 0 {
			_, _ = fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("... (%d earlier or filtered message(s) not shown)", hidden)))
		}
		return nil
	},
}

// parseSince accepts an RFC3339 timestamp or a duration relative to now ("2h")
func parseSince(value string, now time.Time) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	return time.Time{}, fmt.Errorf("invalid --since value %q (expected RFC3339 timestamp or duration like 2h)", value)
}

// filterMessages keeps messages at or after since, then the last n of those
func filterMessages(messages []internal.Message, since time.Time, n int) []internal.Message {
	filtered := make([]internal.Message, 0, len(messages))
	for _, msg := range messages {
		if !since.IsZero() && msg.Timestamp.Before(since) {
			continue
		}
		filtered = append(filtered, msg)
	}
	if n > 0 && n < len(filtered) {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}

func displayThreadHeader(w io.Writer, th *internal.Thread) {
	_, _ = fmt.Fprintln(w, sessionHeaderStyle.Render(th.Title))

	metaParts := []string{fmt.Sprintf("Messages: %d", len(th.Messages))}
	if th.RemoteSessionID != "" {
		metaParts = append(metaParts, fmt.Sprintf("Session: %s", th.RemoteSessionID))
	}
	if !th.LastUpdated.IsZero() {
		metaParts = append(metaParts, fmt.Sprintf("Updated: %s", th.LastUpdated.Local().Format("2006-01-02 15:04")))
	}
	_, _ = fmt.Fprintln(w, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	_, _ = fmt.Fprintln(w)
}

func displayMessage(w io.Writer, index int, msg internal.Message, total int) {
	actorStyle := userMessageStyle
	actorLabel := "User"
	if msg.Role == internal.RoleAssistant {
		actorStyle = assistantMessageStyle
		actorLabel = "Assistant"
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if !msg.Timestamp.IsZero() {
		header += " " + timestampStyle.Render(msg.Timestamp.Local().Format("15:04:05"))
	}
	_, _ = fmt.Fprintln(w, header)

	content := strings.TrimSpace(msg.Content)
	if content != "" {
		content = wrapText(content, 80)
		_, _ = fmt.Fprintln(w, messageContentStyle.Render(content))
	} else {
		_, _ = fmt.Fprintln(w, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}

	_, _ = fmt.Fprintln(w)
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		words := strings.Fields(line)
		currentLine := ""
		for _, word := range words {
			if len(currentLine)+len(word)+1 > width {
				if currentLine != "" {
					wrapped = append(wrapped, currentLine)
					currentLine = word
				} else {
					wrapped = append(wrapped, word)
					currentLine = ""
				}
			} else {
				if currentLine == "" {
					currentLine = word
				} else {
					currentLine += " " + word
				}
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the last N messages")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since a timestamp (RFC3339) or duration ago (e.g. 2h)")
}

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored conversations",
	Long:  `List every stored conversation thread, most recently active first.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		displayThreads(cmd.OutOrStdout(), store.GetAllConversations(), time.Now())
		return nil
	},
}

func displayThreads(out io.Writer, threads []*internal.Thread, now time.Time) {
	if len(threads) == 0 {
		_, _ = fmt.Fprintln(out, headerStyle.Render("No conversations yet"))
		_, _ = fmt.Fprintln(out, idStyle.Render("Start one with `creator-chat open <content-id>`"))
		return
	}

	_, _ = fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Found %d conversation(s)", len(threads))))
	_, _ = fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Content")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("Session")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	for _, th := range threads {
		title := th.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}

		session := "-"
		if th.RemoteSessionID != "" {
			session = th.RemoteSessionID
			if len(session) > 8 {
				session = session[:8]
			}
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			th.Key,
			title,
			countStyle.Render(strconv.Itoa(len(th.Messages))),
			dateStyle.Render(relativeTime(th.LastUpdated, now)),
			idStyle.Render(session))
	}

	_ = w.Flush()
	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, idStyle.Render("Tip: `creator-chat show "+threads[0].Key+"` prints a conversation"))
}

// relativeTime formats t the way the list view shows dates
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}

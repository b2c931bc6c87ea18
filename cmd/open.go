package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
)

var (
	openTitle  string
	openPrompt string
)

var (
	threadHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	threadMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	starterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Italic(true)
)

// openCmd represents the open command
var openCmd = &cobra.Command{
	Use:   "open <content-id>",
	Short: "Start or resume the conversation for a piece of content",
	Long: `Open the conversation thread for a piece of content.

If the thread already has a session on the AI chat service it is resumed and
its history refreshed; if that session has expired a new one is started. With
--prompt the text is sent right after the chat opens.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key := args[0]

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		err = internal.ShowProgress(ctx, "Opening chat session", func() error {
			return store.OpenChat(ctx, key, openTitle, openPrompt)
		})
		if err != nil {
			return explainStoreError(store, err)
		}

		out := cmd.OutOrStdout()
		th, _ := store.Conversation(key)
		printThreadHeader(out, th)

		if prompt := store.View().PendingInitialPrompt; prompt != "" {
			return sendAndPrint(cmd, store, prompt)
		}
		return nil
	},
}

func printThreadHeader(w io.Writer, th *internal.Thread) {
	if th == nil {
		return
	}
	_, _ = fmt.Fprintln(w, threadHeaderStyle.Render(th.Title))
	_, _ = fmt.Fprintln(w, threadMetaStyle.Render(fmt.Sprintf("content %s · session %s · %d message(s)",
		th.Key, th.RemoteSessionID, len(th.Messages))))
	if len(th.ConversationStarters) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Try asking:")
		for _, s := range th.ConversationStarters {
			_, _ = fmt.Fprintln(w, "  "+starterStyle.Render(s))
		}
	}
	_, _ = fmt.Fprintln(w)
}

// explainStoreError prefers the store's user-facing message over the raw error
func explainStoreError(store *internal.ConversationStore, err error) error {
	if msg := store.View().LastError; msg != "" {
		return errors.New(msg)
	}
	return err
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().StringVar(&openTitle, "title", "", "Content title used when a new session is started")
	openCmd.Flags().StringVar(&openPrompt, "prompt", "", "Message to send as soon as the chat is open")
}

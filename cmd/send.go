package cmd

import (
	"errors"
	"strings"

	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
)

var errEmptyMessage = errors.New("message text must not be empty")

var sendTitle string

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <content-id|-> <text...>",
	Short: "Send one message and print the reply",
	Long: `Send a message to the conversation of a piece of content and print the
assistant's reply. Use "-" as the content id for the general chat, which
answers locally without contacting the AI chat service.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key := args[0]
		if key == "-" {
			key = ""
		}
		text := strings.TrimSpace(strings.Join(args[1:], " "))
		if text == "" {
			return errEmptyMessage
		}

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		err = internal.ShowProgress(ctx, "Opening chat session", func() error {
			return store.OpenChat(ctx, key, sendTitle, "")
		})
		if err != nil {
			return explainStoreError(store, err)
		}

		return sendAndPrint(cmd, store, text)
	},
}

// sendAndPrint sends text through the store and prints the assistant reply.
// A content warning from the service is shown but is not an error.
func sendAndPrint(cmd *cobra.Command, store *internal.ConversationStore, text string) error {
	ctx := cmd.Context()
	err := internal.ShowProgress(ctx, "Waiting for the assistant", func() error {
		return store.SendMessage(ctx, text)
	})
	if err != nil {
		return explainStoreError(store, err)
	}

	view := store.View()
	if n := len(view.Messages); n > 0 {
		internal.PrintMessage(cmd.OutOrStdout(), view.Messages[n-1])
	}
	if view.LastError != "" {
		internal.PrintWarning(view.LastError)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVar(&sendTitle, "title", "", "Content title used when a new session is started")
}

package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
)

var chatTitle string

const chatHelp = `Commands:
  /clear   clear this conversation (the remote session is kept)
  /close   close the chat and exit
  /quit    exit
  /help    show this help`

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [content-id]",
	Short: "Interactive chat about a piece of content",
	Long: `Start an interactive chat. Without a content id the general chat is used,
which only explains how to get content-specific help.

` + chatHelp,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key := ""
		if len(args) == 1 {
			key = args[0]
		}

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		err = internal.ShowProgress(ctx, "Opening chat session", func() error {
			return store.OpenChat(ctx, key, chatTitle, "")
		})
		if err != nil {
			return explainStoreError(store, err)
		}

		out := cmd.OutOrStdout()
		if key != "" {
			th, _ := store.Conversation(key)
			printThreadHeader(out, th)
		}
		for _, m := range store.View().Messages {
			internal.PrintMessage(out, m)
		}
		_, _ = fmt.Fprintln(out, threadMetaStyle.Render("Type a message, or /help for commands."))

		scanner := bufio.NewScanner(cmd.InOrStdin())
		for {
			_, _ = fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "/quit", "/exit":
				return nil
			case "/close":
				store.CloseChat()
				return nil
			case "/help":
				_, _ = fmt.Fprintln(out, chatHelp)
				continue
			case "/clear":
				if err := store.ClearMessages(ctx); err != nil {
					internal.PrintError(err.Error())
				} else {
					internal.PrintSuccess("Conversation cleared")
				}
				continue
			}

			if err := sendAndPrint(cmd, store, line); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				internal.PrintError(err.Error())
			}
		}
		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatTitle, "title", "", "Content title used when a new session is started")
}

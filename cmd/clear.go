package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
)

var resetYes bool

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear <content-id|->",
	Short: "Clear the messages of one conversation",
	Long: `Remove every message from a conversation thread. This is a local reset:
the remote service is not contacted. The thread and its remote session id are
kept, so the next message continues on the same session. Use "-" for the
general chat.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key := args[0]
		if key == "-" {
			key = ""
		}

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		if !store.ClearConversation(ctx, key) && key != "" {
			return fmt.Errorf("no conversation for content %q", key)
		}

		name := key
		if name == "" {
			name = internal.GeneralKey
		}
		internal.PrintSuccess(fmt.Sprintf("Cleared conversation %s", name))
		return nil
	},
}

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every stored conversation",
	Long: `Forget every conversation thread and delete the stored copy. Remote
sessions are not deleted; new ones are started the next time a chat opens.
This is the fix when stored history keeps failing to load.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if !resetYes {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), "Delete all stored conversations? [y/N] ")
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			answer = strings.ToLower(strings.TrimSpace(answer))
			if answer != "y" && answer != "yes" {
				internal.PrintInfo("Aborted")
				return nil
			}
		}

		store, closeStore, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		count := len(store.GetAllConversations())
		if err := store.ClearAllConversations(ctx); err != nil {
			return fmt.Errorf("failed to delete stored conversations: %w", err)
		}
		internal.PrintSuccess(fmt.Sprintf("Deleted %d conversation(s)", count))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
}

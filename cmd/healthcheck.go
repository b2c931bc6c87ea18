package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
	healthcheckRemote  bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that creator-chat can store conversations and reach the API",
	Long: `Check the health of creator-chat by verifying:
  • Configuration
  • Conversation storage access (SQLite, Redis or memory)
  • The persisted conversation data
  • With --remote, that the AI chat service answers

This command is useful for debugging storage and connectivity issues.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintln(out, sectionStyle.Render("🔍 Creator Chat Health Check"))
		_, _ = fmt.Fprintln(out)

		// Step 1: Configuration
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 1: Checking configuration..."))
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Configuration valid"))
		if healthcheckDetails {
			_, _ = fmt.Fprintf(out, "   API URL: %s\n", cfg.APIURL)
			_, _ = fmt.Fprintf(out, "   Token: %s\n", tokenState(cfg.APIToken))
			_, _ = fmt.Fprintf(out, "   Storage: %s\n", storageLocation())
			_, _ = fmt.Fprintf(out, "   Timeout: %s\n", cfg.Timeout)
		}
		_, _ = fmt.Fprintln(out)

		// Step 2: Storage
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 2: Testing storage backend access..."))
		kv, err := internal.OpenKVStore(cmd.Context(), cfg)
		if err != nil {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Failed to open storage:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer func() { _ = kv.Close() }()
		_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ %s storage available", cfg.Storage)))
		if healthcheckDetails {
			_, _ = fmt.Fprintf(out, "   Location: %s\n", storageLocation())
		}
		_, _ = fmt.Fprintln(out)

		// Step 3: Persisted data
		_, _ = fmt.Fprintln(out, infoStyle.Render("Step 3: Reading persisted conversations..."))
		_, report, err := internal.NewConversationCache(kv, "").Inspect(cmd.Context())
		healthy := reportPersisted(out, report, err)
		_, _ = fmt.Fprintln(out)

		// Step 4: Remote service
		if healthcheckRemote {
			_, _ = fmt.Fprintln(out, infoStyle.Render("Step 4: Contacting the AI chat service..."))
			svc := internal.NewHTTPChatService(cfg.APIURL, cfg.APIToken, cfg.Timeout)
			status, err := svc.Ping(cmd.Context())
			if err != nil {
				_, _ = fmt.Fprintln(out, errorStyle.Render("❌ AI chat service unreachable:"), err)
				healthy = false
			} else {
				_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ AI chat service reachable (HTTP %d)", status)))
			}
			_, _ = fmt.Fprintln(out)
		}

		// Summary
		_, _ = fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		_, _ = fmt.Fprintln(out)
		if !healthy {
			_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			return fmt.Errorf("health check failed")
		}
		_, _ = fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Conversations: %d", report.Threads)))
		return nil
	},
}

// reportPersisted prints the outcome of decoding the stored entry. A missing
// entry or one that will be discarded is a warning; a storage error fails.
func reportPersisted(out io.Writer, report internal.LoadReport, err error) bool {
	switch {
	case err != nil && !report.Discarded:
		_, _ = fmt.Fprintln(out, errorStyle.Render("❌ Failed to read conversations:"), err)
		return false
	case report.Discarded:
		_, _ = fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  Stored conversations are unusable and will be discarded (%s)", report.Reason)))
	case !report.Found:
		_, _ = fmt.Fprintln(out, warningStyle.Render("⚠️  No conversations stored yet"))
	default:
		_, _ = fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d conversation(s), %d message(s)", report.Threads, report.Messages)))
		if report.Migrated {
			_, _ = fmt.Fprintf(out, "   Stored in the legacy format; migrated on next start\n")
		}
		if report.DroppedPending > 0 {
			_, _ = fmt.Fprintf(out, "   %d unconfirmed message(s) will be dropped\n", report.DroppedPending)
		}
	}
	return true
}

func tokenState(token string) string {
	if token == "" {
		return "not set"
	}
	return "set"
}

func storageLocation() string {
	switch cfg.Storage {
	case internal.StorageSQLite:
		return cfg.DBPath
	case internal.StorageRedis:
		return cfg.RedisURL + " (prefix " + cfg.RedisPrefix + ")"
	default:
		return cfg.Storage
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
	healthcheckCmd.Flags().BoolVar(&healthcheckRemote, "remote", false, "Also check that the AI chat service is reachable")
}

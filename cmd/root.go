package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
)

var (
	verbose     bool
	apiURL      string
	apiToken    string
	storageKind string
	dbPath      string
	redisURL    string
	timeout     time.Duration
	logFormat   string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"
)

// cfg is resolved once per invocation: environment, then .env, then flags.
var cfg *internal.Config

// newChatService builds the remote client; tests swap it for a fake.
var newChatService = func(c *internal.Config) internal.ChatService {
	return internal.NewHTTPChatService(c.APIURL, c.APIToken, c.Timeout)
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "creator-chat",
	Short: "Chat with the AI content assistant from the terminal",
	Long: `A CLI client for the creator dashboard's AI content assistant.

Every piece of content gets its own conversation thread, backed by a session
on the AI chat service. Threads are kept locally (SQLite by default, or Redis)
so they survive restarts, and stale remote sessions are replaced transparently.

Quick Start:
  creator-chat open post-42 --title "Launch post"   # Start or resume a thread
  creator-chat send post-42 "make the hook punchier"
  creator-chat chat post-42                         # Interactive session
  creator-chat list                                 # All threads, newest first
  creator-chat export --format md                   # Export every thread

Configuration is read from CREATOR_CHAT_* environment variables (a .env file in
the working directory is loaded too); flags override both.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := internal.LoadConfig()
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd, loaded)
		if err := loaded.ResolveDBPath(); err != nil {
			return err
		}

		level, err := internal.ParseLogLevel(loaded.LogLevel)
		if err != nil {
			return err
		}
		internal.SetLogLevel(level)
		if verbose {
			internal.SetVerbose(true)
		}
		if err := internal.SetLogOutput(cmd.ErrOrStderr(), loaded.LogFormat); err != nil {
			return err
		}

		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// applyFlagOverrides copies explicitly set flags over the loaded config
func applyFlagOverrides(cmd *cobra.Command, c *internal.Config) {
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		c.APIURL = apiURL
	}
	if flags.Changed("token") {
		c.APIToken = apiToken
	}
	if flags.Changed("storage") {
		c.Storage = storageKind
	}
	if flags.Changed("db") {
		c.DBPath = dbPath
	}
	if flags.Changed("redis-url") {
		c.RedisURL = redisURL
	}
	if flags.Changed("timeout") {
		c.Timeout = timeout
	}
	if flags.Changed("log-format") {
		c.LogFormat = logFormat
	}
}

// openStore builds a hydrated conversation store from cfg. The returned func
// releases the storage backend.
func openStore(ctx context.Context) (*internal.ConversationStore, func(), error) {
	kv, err := internal.OpenKVStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}

	store := internal.NewConversationStore(newChatService(cfg), kv,
		internal.WithLogger(internal.Logger().With().Str("component", "conversation_store").Logger()))
	report := store.Hydrate(ctx)
	if report.Discarded {
		internal.PrintWarning(fmt.Sprintf("Stored conversations were discarded (%s)", report.Reason))
	}
	if report.Migrated {
		internal.LogInfo("Migrated %d conversation(s) from the legacy format", report.Threads)
	}

	return store, func() {
		if err := kv.Close(); err != nil {
			internal.LogWarn("Failed to close storage: %v", err)
		}
	}, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Interrupts cancel the command context so in-flight requests are abandoned.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVar(&apiURL, "api-url", "", "AI chat API base URL (env CREATOR_CHAT_API_URL)")
	pf.StringVar(&apiToken, "token", "", "Bearer token for the AI chat API (env CREATOR_CHAT_API_TOKEN)")
	pf.StringVar(&storageKind, "storage", "", "Conversation storage: sqlite, redis or memory (env CREATOR_CHAT_STORAGE)")
	pf.StringVar(&dbPath, "db", "", "SQLite database path (env CREATOR_CHAT_DB)")
	pf.StringVar(&redisURL, "redis-url", "", "Redis URL for --storage redis (env CREATOR_CHAT_REDIS_URL)")
	pf.DurationVar(&timeout, "timeout", 0, "Timeout for AI chat API calls (env CREATOR_CHAT_TIMEOUT)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: console or json (env CREATOR_CHAT_LOG_FORMAT)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

package cmd

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/iksnae/creator-chat/internal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	inspectFormat     string
	inspectSampleRows int
)

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the persisted conversation data",
	Long: `Inspect the raw persisted conversation entry without modifying it.

This command reports:
  • The schema version of the stored entry and whether it needs migration
  • Whether the entry would be discarded on the next start, and why
  • Thread and message counts, and unconfirmed messages that will be dropped
  • For SQLite storage, every row of the kv table

Examples:
  creator-chat inspect                        # YAML report of the default database
  creator-chat inspect --db ./chat.db --sample 5
  creator-chat inspect --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectFormat != "yaml" && inspectFormat != "json" {
			return fmt.Errorf("unsupported format: %s (supported: yaml, json)", inspectFormat)
		}

		kv, err := internal.OpenKVStore(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
		}
		defer func() { _ = kv.Close() }()

		report, err := buildInspectReport(cmd.Context(), kv, inspectSampleRows)
		if err != nil {
			return err
		}
		return writeInspectReport(cmd.OutOrStdout(), report, inspectFormat)
	},
}

// inspectReport is the document printed by inspect
type inspectReport struct {
	Storage string              `json:"storage" yaml:"storage"`
	Key     string              `json:"key" yaml:"key"`
	Load    internal.LoadReport `json:"load" yaml:"load"`
	Error   string              `json:"error,omitempty" yaml:"error,omitempty"`
	Threads []threadSummary     `json:"threads,omitempty" yaml:"threads,omitempty"`
	Rows    []kvRow             `json:"rows,omitempty" yaml:"rows,omitempty"`
}

type threadSummary struct {
	Key         string    `json:"key" yaml:"key"`
	Title       string    `json:"title" yaml:"title"`
	Session     string    `json:"session,omitempty" yaml:"session,omitempty"`
	Messages    int       `json:"messages" yaml:"messages"`
	LastUpdated time.Time `json:"lastUpdated" yaml:"last_updated"`
}

type kvRow struct {
	Key       string    `json:"key" yaml:"key"`
	Bytes     int       `json:"bytes" yaml:"bytes"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updated_at"`
}

func buildInspectReport(ctx context.Context, kv internal.KVStore, sample int) (*inspectReport, error) {
	cache := internal.NewConversationCache(kv, "")
	report := &inspectReport{Storage: cfg.Storage, Key: cache.Key()}

	snap, load, err := cache.Inspect(ctx)
	report.Load = load
	if err != nil {
		var storageErr *internal.StorageError
		if errors.As(err, &storageErr) {
			return nil, err
		}
		report.Error = err.Error()
	}

	if snap != nil {
		report.Threads = summarizeThreads(snap.Conversations, sample)
	}

	if sqliteKV, ok := kv.(*internal.SQLiteKV); ok {
		rows, err := listKVRows(ctx, sqliteKV.DB())
		if err != nil {
			return nil, fmt.Errorf("failed to list kv rows: %w", err)
		}
		report.Rows = rows
	}
	return report, nil
}

// summarizeThreads returns up to sample threads, most recent first
func summarizeThreads(threads map[string]*internal.Thread, sample int) []threadSummary {
	summaries := make([]threadSummary, 0, len(threads))
	for key, th := range threads {
		summaries = append(summaries, threadSummary{
			Key:         key,
			Title:       th.Title,
			Session:     th.RemoteSessionID,
			Messages:    len(th.Messages),
			LastUpdated: th.LastUpdated,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].LastUpdated.Equal(summaries[j].LastUpdated) {
			return summaries[i].LastUpdated.After(summaries[j].LastUpdated)
		}
		return summaries[i].Key < summaries[j].Key
	})
	if sample >= 0 && len(summaries) > sample {
		summaries = summaries[:sample]
	}
	return summaries
}

func listKVRows(ctx context.Context, db *sql.DB) ([]kvRow, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, LENGTH(CAST(value AS BLOB)), updated_at FROM kv ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []kvRow
	for rows.Next() {
		var row kvRow
		var size sql.NullInt64
		var updated int64
		if err := rows.Scan(&row.Key, &size, &updated); err != nil {
			return nil, err
		}
		row.Bytes = int(size.Int64)
		if updated > 0 {
			row.UpdatedAt = time.UnixMilli(updated).UTC()
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func writeInspectReport(w io.Writer, report *inspectReport, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "yaml", "Output format (yaml, json)")
	inspectCmd.Flags().IntVar(&inspectSampleRows, "sample", 10, "Number of threads to summarize")
}

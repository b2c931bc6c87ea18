package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/iksnae/creator-chat/internal"
	"github.com/iksnae/creator-chat/internal/export"
	"github.com/spf13/cobra"
)

var (
	format     string
	outputDir  string
	exportKeys []string
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export conversations to file",
	Long: `Export stored conversation threads to various formats (jsonl, md, yaml, json).

Every thread is written to its own file named after its content id. Use --key
(repeatable) to export specific threads; see 'creator-chat list' for keys.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		store, closeStore, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer closeStore()

		threads := store.GetAllConversations()
		if len(exportKeys) > 0 {
			filtered := make([]*internal.Thread, 0, len(exportKeys))
			for _, key := range exportKeys {
				th, ok := store.Conversation(key)
				if !ok {
					return fmt.Errorf("conversation not found: %s (use 'creator-chat list' to see available conversations)", key)
				}
				filtered = append(filtered, th)
			}
			threads = filtered
		}

		if len(threads) == 0 {
			internal.PrintInfo("No conversations to export")
			return nil
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		exported := 0
		err = internal.ShowProgress(cmd.Context(), fmt.Sprintf("Exporting %d conversation(s) to %s", len(threads), outputDir), func() error {
			for _, th := range threads {
				path := filepath.Join(outputDir, exportFilename(th.Key, exporter.Extension()))
				if err := writeExport(exporter, th, path); err != nil {
					internal.LogError("%v", err)
					continue
				}
				exported++
			}
			return nil
		})
		if err != nil {
			return err
		}

		if exported < len(threads) {
			return fmt.Errorf("exported %d of %d conversation(s); see log for failures", exported, len(threads))
		}
		internal.PrintSuccess(fmt.Sprintf("Export complete: %d conversation(s) exported to %s", exported, outputDir))
		return nil
	},
}

// exportFilename maps a conversation key to a file name safe on every platform
func exportFilename(key, ext string) string {
	name := unsafeFilenameChars.ReplaceAllString(key, "_")
	if name == "" {
		name = "conversation"
	}
	return fmt.Sprintf("chat_%s.%s", name, ext)
}

func writeExport(exporter export.Exporter, th *internal.Thread, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}

	if err := exporter.Export(th, file); err != nil {
		_ = file.Close()
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}

	if err := file.Close(); err != nil {
		return &internal.ExportError{Format: format, Path: path, Err: err}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringSliceVar(&exportKeys, "key", nil, "Export only the conversation with this content id (repeatable)")
}

package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/creator-chat/internal"
)

// MarkdownExporter exports threads in Markdown format
type MarkdownExporter struct{}

// Export exports a thread to Markdown format
func (e *MarkdownExporter) Export(thread *internal.Thread, w io.Writer) error {
	title := thread.Title
	if title == "" {
		title = internal.DefaultTitle(thread.Key)
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	_, _ = fmt.Fprintf(w, "**Content:** %s  \n", thread.Key)
	if thread.RemoteSessionID != "" {
		_, _ = fmt.Fprintf(w, "**Session:** %s  \n", thread.RemoteSessionID)
	}
	if !thread.LastUpdated.IsZero() {
		_, _ = fmt.Fprintf(w, "**Last updated:** %s  \n", thread.LastUpdated.UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(thread.Messages))

	if len(thread.ConversationStarters) > 0 {
		_, _ = fmt.Fprintf(w, "**Conversation starters:**\n\n")
		for _, s := range thread.ConversationStarters {
			_, _ = fmt.Fprintf(w, "- %s\n", s)
		}
		_, _ = fmt.Fprintf(w, "\n")
	}

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range thread.Messages {
		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.UTC().Format(time.RFC3339))
		}

		content := escapeMarkdown(msg.Content)

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", msg.Role, timestamp, content)

		if i < len(thread.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// escapeMarkdown escapes emphasis markers outside fenced code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}

package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/iksnae/creator-chat/internal"
)

// JSONLExporter exports threads in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a thread to JSONL format
func (e *JSONLExporter) Export(thread *internal.Thread, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range thread.Messages {
		obj := map[string]interface{}{
			"conversation": thread.Key,
			"role":         msg.Role,
			"content":      msg.Content,
		}
		if msg.ID != "" {
			obj["id"] = msg.ID
		}
		if !msg.Timestamp.IsZero() {
			obj["timestamp"] = msg.Timestamp.UTC().Format(time.RFC3339)
		}
		if len(msg.Metadata) > 0 {
			obj["metadata"] = msg.Metadata
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

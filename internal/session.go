package internal

import (
	"fmt"
	"time"
)

// GeneralKey is the conversation key of the content-less thread.
const GeneralKey = "general"

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one exchange unit in a thread. Messages are appended, never edited;
// a rollback removes the message instead.
type Message struct {
	ID              string                 `json:"id" yaml:"id"`
	Role            Role                   `json:"role" yaml:"role"`
	Content         string                 `json:"content" yaml:"content"`
	Timestamp       time.Time              `json:"timestamp" yaml:"timestamp"`
	Metadata        map[string]interface{} `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ConversationKey string                 `json:"conversationKey,omitempty" yaml:"conversation_key,omitempty"`
	// Pending marks an optimistic user message still awaiting the remote reply.
	Pending bool `json:"pending,omitempty" yaml:"pending,omitempty"`
}

// Action is a follow-up suggested by the remote service
type Action struct {
	Type    string                 `json:"type,omitempty" yaml:"type,omitempty"`
	Label   string                 `json:"label,omitempty" yaml:"label,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Thread is the message history and metadata of one conversation key
type Thread struct {
	Key                  string    `json:"key" yaml:"key"`
	Title                string    `json:"title" yaml:"title"`
	RemoteSessionID      string    `json:"remoteSessionId,omitempty" yaml:"remote_session_id,omitempty"`
	Messages             []Message `json:"messages" yaml:"messages"`
	LastUpdated          time.Time `json:"lastUpdated" yaml:"last_updated"`
	ConversationStarters []string  `json:"conversationStarters,omitempty" yaml:"conversation_starters,omitempty"`
	UIActions            []Action  `json:"uiActions,omitempty" yaml:"ui_actions,omitempty"`
}

// DefaultTitle returns the generated label used when a thread has no title.
func DefaultTitle(key string) string {
	if key == "" || key == GeneralKey {
		return "General Chat"
	}
	return fmt.Sprintf("Content %s", key)
}

// HasSession reports whether the remote service confirmed a session for the thread
func (t *Thread) HasSession() bool {
	return t != nil && t.RemoteSessionID != ""
}

// Clone returns a deep copy safe to hand out to readers.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	c := *t
	c.Messages = cloneMessages(t.Messages)
	if t.ConversationStarters != nil {
		c.ConversationStarters = append([]string(nil), t.ConversationStarters...)
	}
	c.UIActions = cloneActions(t.UIActions)
	return &c
}

// removeMessage drops the message with the given id and reports whether it was found.
func (t *Thread) removeMessage(id string) bool {
	for i := range t.Messages {
		if t.Messages[i].ID == id {
			t.Messages = append(t.Messages[:i], t.Messages[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Thread) confirmMessage(id string) {
	for i := range t.Messages {
		if t.Messages[i].ID == id {
			t.Messages[i].Pending = false
			return
		}
	}
}

// dropPending removes messages left pending by an interrupted send.
func (t *Thread) dropPending() int {
	kept := t.Messages[:0]
	dropped := 0
	for _, m := range t.Messages {
		if m.Pending {
			dropped++
			continue
		}
		kept = append(kept, m)
	}
	t.Messages = kept
	return dropped
}

func cloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m
		out[i].Metadata = cloneMap(m.Metadata)
	}
	return out
}

func cloneActions(in []Action) []Action {
	if in == nil {
		return nil
	}
	out := make([]Action, len(in))
	for i, a := range in {
		out[i] = a
		out[i].Payload = cloneMap(a.Payload)
	}
	return out
}

// cloneMap copies the top level of a free-form map; nested values are shared.
func cloneMap(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

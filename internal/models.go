package internal

import (
	"encoding/json"
	"time"
)

// StatusSuccess is the envelope status code of a logically successful call.
const StatusSuccess = "10000"

// Envelope is the response shape shared by every AI chat endpoint. The status
// code is independent of the HTTP status.
type Envelope[T any] struct {
	StatusCode string `json:"statusCode"`
	Message    string `json:"message"`
	Data       *T     `json:"data"`
}

// OK reports whether the envelope carries a success status
func (e *Envelope[T]) OK() bool {
	return e != nil && e.StatusCode == StatusSuccess
}

// RawMessage is a message as returned by the remote service
type RawMessage struct {
	ID        string                 `json:"id,omitempty"`
	Role      string                 `json:"role"`
	Content   string                 `json:"content"`
	Timestamp string                 `json:"timestamp,omitempty"`
	CreatedAt string                 `json:"createdAt,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// RawSession is the remote session record
type RawSession struct {
	ID        string       `json:"id"`
	Title     string       `json:"title,omitempty"`
	UpdatedAt string       `json:"updatedAt,omitempty"`
	Messages  []RawMessage `json:"messages"`
}

// RawUI carries suggested follow-up actions
type RawUI struct {
	Actions []Action `json:"actions"`
}

// StartSessionRequest is the body of a start-session call
type StartSessionRequest struct {
	Title       string `json:"title"`
	ContentID   string `json:"contentId"`
	Description string `json:"description"`
}

// SessionData is the payload of start-session and get-session responses
type SessionData struct {
	Session              RawSession `json:"session"`
	ConversationStarters []string   `json:"conversationStarters"`
	UI                   RawUI      `json:"ui"`
}

// SendMessageRequest is the body of a send-message call
type SendMessageRequest struct {
	Message string `json:"message"`
}

// SendMessageData is the payload of a send-message response
type SendMessageData struct {
	Message                      RawMessage      `json:"message"`
	InappropriateContentDetected bool            `json:"inappropriateContentDetected"`
	WarningMessage               string          `json:"warningMessage,omitempty"`
	Suggestions                  []string        `json:"suggestions,omitempty"`
	ContentInsights              json.RawMessage `json:"contentInsights,omitempty"`
}

// ParseRemoteTime parses a timestamp from the remote service, falling back when
// the value is empty, malformed or the zero time.
func ParseRemoteTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			if t.IsZero() {
				return fallback
			}
			return t
		}
	}
	return fallback
}

// ToMessage normalizes a remote message for the given thread
func (rm RawMessage) ToMessage(key string, fallback time.Time) Message {
	role := RoleAssistant
	if rm.Role == string(RoleUser) {
		role = RoleUser
	}
	ts := rm.Timestamp
	if ts == "" {
		ts = rm.CreatedAt
	}
	when := ParseRemoteTime(ts, fallback)
	id := rm.ID
	if id == "" {
		id = NewMessageID(fallback)
	}
	return Message{
		ID:              id,
		Role:            role,
		Content:         rm.Content,
		Timestamp:       when,
		Metadata:        cloneMap(rm.Metadata),
		ConversationKey: key,
	}
}

// ToMessages normalizes a remote message history, preserving order.
func (rs RawSession) ToMessages(key string, fallback time.Time) []Message {
	msgs := make([]Message, 0, len(rs.Messages))
	for _, rm := range rs.Messages {
		msgs = append(msgs, rm.ToMessage(key, fallback))
	}
	return msgs
}

// AssistantMetadata folds the reply annotations into message metadata.
func (d *SendMessageData) AssistantMetadata() map[string]interface{} {
	meta := cloneMap(d.Message.Metadata)
	if len(d.Suggestions) > 0 {
		if meta == nil {
			meta = map[string]interface{}{}
		}
		meta["suggestions"] = append([]string(nil), d.Suggestions...)
	}
	if len(d.ContentInsights) > 0 && string(d.ContentInsights) != "null" {
		var insights interface{}
		if err := json.Unmarshal(d.ContentInsights, &insights); err == nil {
			if meta == nil {
				meta = map[string]interface{}{}
			}
			meta["contentInsights"] = insights
		}
	}
	return meta
}

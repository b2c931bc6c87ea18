package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// StorageKey is the KV entry holding every conversation thread.
const StorageKey = "ai_chat_conversations"

// CurrentSchemaVersion is written alongside persisted conversations. Blobs
// without a version are the legacy bare-map format.
const CurrentSchemaVersion = 2

// Snapshot is the persisted representation of the conversation map
type Snapshot struct {
	Version       int                `json:"version" yaml:"version"`
	SavedAt       time.Time          `json:"savedAt" yaml:"saved_at"`
	Conversations map[string]*Thread `json:"conversations" yaml:"conversations"`
}

// LoadReport describes what decoding a persisted blob did
type LoadReport struct {
	Found          bool   `json:"found" yaml:"found"`
	Version        int    `json:"version" yaml:"version"`
	Migrated       bool   `json:"migrated" yaml:"migrated"`
	Discarded      bool   `json:"discarded" yaml:"discarded"`
	Reason         string `json:"reason,omitempty" yaml:"reason,omitempty"`
	Threads        int    `json:"threads" yaml:"threads"`
	Messages       int    `json:"messages" yaml:"messages"`
	DroppedPending int    `json:"droppedPending" yaml:"dropped_pending"`
}

// legacyThread is the pre-versioned thread shape. RemoteSessionID is a pointer
// so a missing field can be told apart from an empty one.
type legacyThread struct {
	ContentID            string    `json:"contentId"`
	Key                  string    `json:"key"`
	Title                string    `json:"title"`
	RemoteSessionID      *string   `json:"remoteSessionId"`
	Messages             []Message `json:"messages"`
	LastUpdated          time.Time `json:"lastUpdated"`
	ConversationStarters []string  `json:"conversationStarters"`
	UIActions            []Action  `json:"uiActions"`
}

// EncodeSnapshot serializes threads in the current schema
func EncodeSnapshot(threads map[string]*Thread, now time.Time) (string, error) {
	snap := Snapshot{
		Version:       CurrentSchemaVersion,
		SavedAt:       now.UTC(),
		Conversations: threads,
	}
	if snap.Conversations == nil {
		snap.Conversations = map[string]*Thread{}
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal conversations: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot parses a persisted blob. A blob that cannot be restored as a
// whole yields an empty map and a report with Discarded set; the error is only
// non-nil for corrupt data and is already reflected in the report.
func DecodeSnapshot(raw string) (map[string]*Thread, LoadReport, error) {
	report := LoadReport{Found: true}
	threads := map[string]*Thread{}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		report.Discarded = true
		report.Reason = "corrupt data"
		return threads, report, &ParseError{Source: "persisted", Key: StorageKey, Err: err}
	}

	if version, ok := schemaVersion(top); ok {
		report.Version = version
		if version != CurrentSchemaVersion {
			report.Discarded = true
			report.Reason = fmt.Sprintf("unsupported schema version %d", version)
			return threads, report, nil
		}
		var snap Snapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			report.Discarded = true
			report.Reason = "corrupt data"
			return threads, report, &ParseError{Source: "persisted", Key: StorageKey, Err: err}
		}
		for key, th := range snap.Conversations {
			if th == nil {
				continue
			}
			th.Key = key
			report.DroppedPending += th.dropPending()
			threads[key] = th
		}
		report.tally(threads)
		return threads, report, nil
	}

	report.Version = 1
	migrated, reason, err := migrateLegacy(top)
	if err != nil {
		report.Discarded = true
		report.Reason = "corrupt data"
		return map[string]*Thread{}, report, &ParseError{Source: "persisted", Key: StorageKey, Err: err}
	}
	if reason != "" {
		report.Discarded = true
		report.Reason = reason
		return map[string]*Thread{}, report, nil
	}
	report.Migrated = true
	for _, th := range migrated {
		report.DroppedPending += th.dropPending()
	}
	report.tally(migrated)
	return migrated, report, nil
}

func (r *LoadReport) tally(threads map[string]*Thread) {
	r.Threads = len(threads)
	r.Messages = 0
	for _, th := range threads {
		r.Messages += len(th.Messages)
	}
}

// schemaVersion returns the numeric version field, if the blob has one.
func schemaVersion(top map[string]json.RawMessage) (int, bool) {
	raw, ok := top["version"]
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
	if err != nil {
		return 0, false
	}
	return v, true
}

// migrateLegacy converts a bare key->thread map. Any thread holding messages
// without a remote session id makes the whole blob incompatible; the returned
// reason is non-empty in that case.
func migrateLegacy(top map[string]json.RawMessage) (map[string]*Thread, string, error) {
	threads := make(map[string]*Thread, len(top))
	for key, raw := range top {
		var lt legacyThread
		if err := json.Unmarshal(raw, &lt); err != nil {
			return nil, "", fmt.Errorf("legacy entry %s: %w", key, err)
		}
		sessionID := ""
		if lt.RemoteSessionID != nil {
			sessionID = *lt.RemoteSessionID
		}
		if sessionID == "" && len(lt.Messages) > 0 {
			return nil, fmt.Sprintf("legacy thread %s has messages but no remote session", key), nil
		}
		title := lt.Title
		if title == "" {
			title = DefaultTitle(key)
		}
		for i := range lt.Messages {
			if lt.Messages[i].ConversationKey == "" {
				lt.Messages[i].ConversationKey = key
			}
		}
		threads[key] = &Thread{
			Key:                  key,
			Title:                title,
			RemoteSessionID:      sessionID,
			Messages:             lt.Messages,
			LastUpdated:          lt.LastUpdated,
			ConversationStarters: lt.ConversationStarters,
			UIActions:            lt.UIActions,
		}
	}
	return threads, "", nil
}

// ConversationCache reads and writes the conversation map through a KVStore
type ConversationCache struct {
	kv  KVStore
	key string
}

// NewConversationCache creates a cache over kv using key as the entry name
func NewConversationCache(kv KVStore, key string) *ConversationCache {
	if key == "" {
		key = StorageKey
	}
	return &ConversationCache{kv: kv, key: key}
}

// Key returns the KV entry name
func (c *ConversationCache) Key() string {
	return c.key
}

// Load restores the conversation map. Unusable data is deleted from the store
// and an empty map is returned; storage errors are returned as-is.
func (c *ConversationCache) Load(ctx context.Context) (map[string]*Thread, LoadReport, error) {
	raw, found, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return map[string]*Thread{}, LoadReport{}, err
	}
	if !found || raw == "" {
		return map[string]*Thread{}, LoadReport{}, nil
	}

	threads, report, decodeErr := DecodeSnapshot(raw)
	if report.Discarded {
		if err := c.kv.Delete(ctx, c.key); err != nil {
			LogWarn("Failed to delete discarded conversations: %v", err)
		}
	}
	return threads, report, decodeErr
}

// Inspect decodes the stored blob without modifying the store
func (c *ConversationCache) Inspect(ctx context.Context) (*Snapshot, LoadReport, error) {
	raw, found, err := c.kv.Get(ctx, c.key)
	if err != nil {
		return nil, LoadReport{}, err
	}
	if !found {
		return nil, LoadReport{}, nil
	}
	threads, report, decodeErr := DecodeSnapshot(raw)
	snap := &Snapshot{Version: report.Version, Conversations: threads}
	return snap, report, decodeErr
}

// Save writes the whole conversation map
func (c *ConversationCache) Save(ctx context.Context, threads map[string]*Thread, now time.Time) error {
	data, err := EncodeSnapshot(threads, now)
	if err != nil {
		return err
	}
	return c.kv.Set(ctx, c.key, data)
}

// Clear deletes the stored conversations
func (c *ConversationCache) Clear(ctx context.Context) error {
	return c.kv.Delete(ctx, c.key)
}

package testutil

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// CurrentBlob is a persisted conversation map in the versioned format.
const CurrentBlob = `{
  "version": 2,
  "savedAt": "2024-01-01T00:00:10Z",
  "conversations": {
    "c1": {
      "key": "c1",
      "title": "My Post",
      "remoteSessionId": "s1",
      "messages": [
        {"id": "m1", "role": "user", "content": "make it punchier", "timestamp": "2024-01-01T00:00:01Z", "conversationKey": "c1"},
        {"id": "m2", "role": "assistant", "content": "Here's a punchier version...", "timestamp": "2024-01-01T00:00:05Z", "conversationKey": "c1"}
      ],
      "lastUpdated": "2024-01-01T00:00:05Z",
      "conversationStarters": ["Improve my hook"]
    },
    "c2": {
      "key": "c2",
      "title": "Draft",
      "remoteSessionId": "s2",
      "messages": [],
      "lastUpdated": "2024-01-02T00:00:00Z"
    }
  }
}`

// LegacyBlob is an unversioned map whose entries all carry a session id, so it
// can be migrated.
const LegacyBlob = `{
  "c1": {
    "contentId": "c1",
    "title": "My Post",
    "remoteSessionId": "s1",
    "messages": [
      {"id": "m1", "role": "user", "content": "hello", "timestamp": "2024-01-01T00:00:01Z"}
    ],
    "lastUpdated": "2024-01-01T00:00:01Z"
  }
}`

// IncompatibleLegacyBlob has a thread with messages but no remoteSessionId field.
const IncompatibleLegacyBlob = `{
  "c1": {
    "contentId": "c1",
    "title": "Old",
    "messages": [
      {"id": "m1", "role": "user", "content": "hello", "timestamp": "2024-01-01T00:00:01Z"}
    ],
    "lastUpdated": "2024-01-01T00:00:01Z"
  },
  "c2": {
    "contentId": "c2",
    "title": "Fine",
    "remoteSessionId": "s2",
    "messages": [],
    "lastUpdated": "2024-01-01T00:00:01Z"
  }
}`

// CreateSQLiteFixture creates a database file at dbPath holding CurrentBlob under storageKey
func CreateSQLiteFixture(t *testing.T, dbPath, storageKey string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		t.Fatalf("Failed to create fixture directory: %v", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec(createKVTableSQL); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	InsertKV(t, db, storageKey, CurrentBlob)
}

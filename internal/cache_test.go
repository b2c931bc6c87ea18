package internal

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/creator-chat/testutil"
)

func TestEncodeSnapshot(t *testing.T) {
	threads := map[string]*Thread{"c1": CreateTestThread("c1", "s1", 2)}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	raw, err := EncodeSnapshot(threads, now)
	if err != nil {
		t.Fatalf("EncodeSnapshot() error = %v", err)
	}
	for _, want := range []string{`"version":2`, `"savedAt":"2024-05-01T12:00:00Z"`, `"remoteSessionId":"s1"`} {
		if !strings.Contains(raw, want) {
			t.Errorf("EncodeSnapshot() missing %s in %s", want, raw)
		}
	}

	empty, err := EncodeSnapshot(nil, now)
	if err != nil {
		t.Fatalf("EncodeSnapshot(nil) error = %v", err)
	}
	if !strings.Contains(empty, `"conversations":{}`) {
		t.Errorf("EncodeSnapshot(nil) = %s, want empty conversations object", empty)
	}
}

func TestDecodeSnapshot(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantThreads   int
		wantMigrated  bool
		wantDiscarded bool
		wantErr       bool
		wantReason    string
	}{
		{name: "current", raw: testutil.CurrentBlob, wantThreads: 2},
		{name: "legacy", raw: testutil.LegacyBlob, wantThreads: 1, wantMigrated: true},
		{name: "legacy without session", raw: testutil.IncompatibleLegacyBlob, wantDiscarded: true, wantReason: "no remote session"},
		{name: "legacy empty session id", raw: `{"c1":{"remoteSessionId":"","messages":[{"role":"user","content":"x"}]}}`, wantDiscarded: true, wantReason: "no remote session"},
		{name: "legacy empty thread without session", raw: `{"c1":{"title":"Idle","messages":[]}}`, wantThreads: 1, wantMigrated: true},
		{name: "future version", raw: `{"version":3,"conversations":{}}`, wantDiscarded: true, wantReason: "unsupported schema version 3"},
		{name: "old version", raw: `{"version":1,"conversations":{}}`, wantDiscarded: true, wantReason: "unsupported schema version 1"},
		{name: "corrupt", raw: `{"version":`, wantDiscarded: true, wantErr: true, wantReason: "corrupt data"},
		{name: "not an object", raw: `[1,2,3]`, wantDiscarded: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threads, report, err := DecodeSnapshot(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeSnapshot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(threads) != tt.wantThreads {
				t.Errorf("DecodeSnapshot() threads = %d, want %d", len(threads), tt.wantThreads)
			}
			if report.Migrated != tt.wantMigrated {
				t.Errorf("Migrated = %v, want %v", report.Migrated, tt.wantMigrated)
			}
			if report.Discarded != tt.wantDiscarded {
				t.Errorf("Discarded = %v, want %v", report.Discarded, tt.wantDiscarded)
			}
			if tt.wantReason != "" && !strings.Contains(report.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want containing %q", report.Reason, tt.wantReason)
			}
			if err != nil {
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Errorf("error = %T, want *ParseError", err)
				}
			}
		})
	}
}

func TestDecodeSnapshot_MigratedThreadShape(t *testing.T) {
	threads, _, err := DecodeSnapshot(`{"c9":{"contentId":"c9","remoteSessionId":"s9","messages":[]}}`)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	th := threads["c9"]
	if th == nil {
		t.Fatal("thread c9 missing")
	}
	if th.Key != "c9" || th.RemoteSessionID != "s9" {
		t.Errorf("thread = %+v", th)
	}
	if th.Title != "Content c9" {
		t.Errorf("Title = %q, want generated default", th.Title)
	}
}

func TestDecodeSnapshot_KeyFromMap(t *testing.T) {
	threads, _, err := DecodeSnapshot(`{"version":2,"conversations":{"c1":{"key":"wrong","remoteSessionId":"s1","messages":[]}}}`)
	if err != nil {
		t.Fatalf("DecodeSnapshot() error = %v", err)
	}
	if threads["c1"].Key != "c1" {
		t.Errorf("Key = %q, want c1", threads["c1"].Key)
	}
}

func TestConversationCache_LoadDeletesDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	if err := kv.Set(ctx, StorageKey, testutil.IncompatibleLegacyBlob); err != nil {
		t.Fatal(err)
	}
	cache := NewConversationCache(kv, "")

	threads, report, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(threads) != 0 || !report.Discarded {
		t.Errorf("Load() = %d threads, report %+v", len(threads), report)
	}
	if _, found, _ := kv.Get(ctx, StorageKey); found {
		t.Error("discarded blob was not deleted")
	}
}

func TestConversationCache_InspectDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	if err := kv.Set(ctx, StorageKey, testutil.IncompatibleLegacyBlob); err != nil {
		t.Fatal(err)
	}
	cache := NewConversationCache(kv, StorageKey)

	snap, report, err := cache.Inspect(ctx)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if snap == nil || !report.Discarded || report.Version != 1 {
		t.Errorf("Inspect() = %+v, %+v", snap, report)
	}
	if _, found, _ := kv.Get(ctx, StorageKey); !found {
		t.Error("Inspect() deleted the blob")
	}
}

func TestConversationCache_SaveLoadClear(t *testing.T) {
	ctx := context.Background()
	cache := NewConversationCache(NewMemoryKV(), "k")
	threads := map[string]*Thread{
		"c1": CreateTestThread("c1", "s1", 3),
		"c2": CreateTestThread("c2", "s2", 0),
	}

	if err := cache.Save(ctx, threads, time.Now()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, report, err := cache.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if report.Threads != 2 || report.Messages != 3 {
		t.Errorf("report = %+v, want 2 threads 3 messages", report)
	}
	if got := loaded["c1"].Messages[2].ID; got != threads["c1"].Messages[2].ID {
		t.Errorf("message id = %q, want %q", got, threads["c1"].Messages[2].ID)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	loaded, report, err = cache.Load(ctx)
	if err != nil || len(loaded) != 0 || report.Found {
		t.Errorf("Load() after Clear = %d threads, %+v, %v", len(loaded), report, err)
	}
}

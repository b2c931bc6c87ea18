package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/creator-chat/internal"
)

func TestShowCommand(t *testing.T) {
	env := newCmdEnv(t).withFixture(t)

	tests := []struct {
		name     string
		args     []string
		wantErr  bool
		contains []string
		excludes []string
	}{
		{
			name:    "show without content id",
			args:    []string{"show"},
			wantErr: true,
		},
		{
			name:    "unknown conversation",
			args:    []string{"show", "missing"},
			wantErr: true,
		},
		{
			name:     "whole thread",
			args:     []string{"show", "c1"},
			contains: []string{"My Post", "Session: s1", "make it punchier", "Here's a punchier version..."},
		},
		{
			name:     "limit keeps the latest messages",
			args:     []string{"show", "c1", "-n", "1"},
			contains: []string{"Here's a punchier version...", "1 earlier or filtered message(s) not shown"},
			excludes: []string{"make it punchier"},
		},
		{
			name:     "since filters older messages",
			args:     []string{"show", "c1", "--since", "2024-01-01T00:00:03Z"},
			contains: []string{"Here's a punchier version..."},
			excludes: []string{"make it punchier"},
		},
		{
			name:    "invalid since",
			args:    []string{"show", "c1", "--since", "yesterday"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("show error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, s := range tt.contains {
				if !strings.Contains(out, s) {
					t.Errorf("output missing %q:\n%s", s, out)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(out, s) {
					t.Errorf("output should not contain %q:\n%s", s, out)
				}
			}
		})
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	got, err := parseSince("2024-01-01T00:00:00Z", now)
	if err != nil || !got.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("parseSince(RFC3339) = %v, %v", got, err)
	}

	got, err = parseSince("2h", now)
	if err != nil || !got.Equal(now.Add(-2*time.Hour)) {
		t.Errorf("parseSince(duration) = %v, %v", got, err)
	}

	if _, err := parseSince("soon", now); err == nil {
		t.Error("parseSince(invalid) should fail")
	}
}

func TestFilterMessages(t *testing.T) {
	th := internal.CreateTestThread("c1", "s1", 5)
	base := th.Messages[0].Timestamp

	tests := []struct {
		name  string
		since time.Time
		n     int
		want  []string
	}{
		{"no filters", time.Time{}, 0, []string{"message a", "message b", "message c", "message d", "message e"}},
		{"last two", time.Time{}, 2, []string{"message d", "message e"}},
		{"since", base.Add(3 * time.Second), 0, []string{"message d", "message e"}},
		{"since and limit", base.Add(1 * time.Second), 1, []string{"message e"}},
		{"limit above count", time.Time{}, 10, []string{"message a", "message b", "message c", "message d", "message e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterMessages(th.Messages, tt.since, tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("filterMessages() returned %d messages, want %d", len(got), len(tt.want))
			}
			for i, m := range got {
				if m.Content != tt.want[i] {
					t.Errorf("message %d = %q, want %q", i, m.Content, tt.want[i])
				}
			}
		})
	}
}

func TestDisplayMessage(t *testing.T) {
	var buf bytes.Buffer
	displayMessage(&buf, 1, internal.Message{Role: internal.RoleAssistant, Content: "  "}, 1)
	if !strings.Contains(buf.String(), "Assistant") || !strings.Contains(buf.String(), "(empty message)") {
		t.Errorf("displayMessage() = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{"short line", "hello world", 80, "hello world"},
		{"wraps on words", "aaa bbb ccc", 7, "aaa bbb\nccc"},
		{"keeps newlines", "one\ntwo", 80, "one\ntwo"},
		{"long word", "abcdefghij", 4, "abcdefghij"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrapText(tt.text, tt.width); got != tt.want {
				t.Errorf("wrapText() = %q, want %q", got, tt.want)
			}
		})
	}
}

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/creator-chat/internal"
	"github.com/iksnae/creator-chat/testutil"
)

func TestExportCommand(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantErr   bool
		wantFiles []string
	}{
		{
			name:    "invalid format",
			args:    []string{"export", "--format", "invalid"},
			wantErr: true,
		},
		{
			name:      "all conversations as jsonl",
			args:      []string{"export"},
			wantFiles: []string{"chat_c1.jsonl", "chat_c2.jsonl"},
		},
		{
			name:      "single conversation as markdown",
			args:      []string{"export", "--format", "md", "--key", "c1"},
			wantFiles: []string{"chat_c1.md"},
		},
		{
			name:    "unknown key",
			args:    []string{"export", "--key", "missing"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newCmdEnv(t).withFixture(t)
			outDir := filepath.Join(testutil.CreateTempDir(t), "exports")

			_, err := env.run(t, append(tt.args, "--out", outDir)...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("export error = %v, wantErr %v", err, tt.wantErr)
			}

			entries, _ := os.ReadDir(outDir)
			var got []string
			for _, e := range entries {
				got = append(got, e.Name())
			}
			if strings.Join(got, ",") != strings.Join(tt.wantFiles, ",") {
				t.Errorf("exported files = %v, want %v", got, tt.wantFiles)
			}
		})
	}
}

func TestExportCommand_JSONContent(t *testing.T) {
	env := newCmdEnv(t).withFixture(t)
	outDir := testutil.CreateTempDir(t)

	if _, err := env.run(t, "export", "-f", "json", "--key", "c1", "-o", outDir); err != nil {
		t.Fatalf("export error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "chat_c1.json"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var th internal.Thread
	testutil.JSONUnmarshal(t, data, &th)
	if th.Key != "c1" || th.RemoteSessionID != "s1" || len(th.Messages) != 2 {
		t.Errorf("exported thread = %+v", th)
	}
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"c1", "chat_c1.md"},
		{"posts/42", "chat_posts_42.md"},
		{"a b?c", "chat_a_b_c.md"},
		{"", "chat_conversation.md"},
	}
	for _, tt := range tests {
		if got := exportFilename(tt.key, "md"); got != tt.want {
			t.Errorf("exportFilename(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

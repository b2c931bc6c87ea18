package internal

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestShowProgress(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		message string
		fn      func() error
		wantErr bool
	}{
		{
			name:    "successful function",
			message: "Testing",
			fn: func() error {
				return nil
			},
			wantErr: false,
		},
		{
			name:    "function with error",
			message: "Testing error",
			fn: func() error {
				return errors.New("test error")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ShowProgress(ctx, tt.message, tt.fn)
			if (err != nil) != tt.wantErr {
				t.Errorf("ShowProgress() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShowProgressSimple(t *testing.T) {
	var buf bytes.Buffer
	err := showProgressSimple(context.Background(), &buf, "Sending", func() error {
		time.Sleep(150 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("showProgressSimple() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Sending") {
		t.Errorf("output = %q, want message", buf.String())
	}
}

func TestShowProgressSimple_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var buf bytes.Buffer
	err := showProgressSimple(ctx, &buf, "Waiting", func() error {
		time.Sleep(300 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("showProgressSimple() error = %v, want deadline exceeded", err)
	}
}

func TestRenderMessage(t *testing.T) {
	ts := time.Date(2024, 1, 1, 12, 30, 0, 0, time.Local)

	user := RenderMessage(Message{Role: RoleUser, Content: "make it punchier", Timestamp: ts}, false)
	if !strings.HasPrefix(user, "You 2024-01-01 12:30\n") {
		t.Errorf("RenderMessage(user) = %q", user)
	}
	if !strings.Contains(user, "make it punchier") {
		t.Errorf("RenderMessage(user) missing content: %q", user)
	}

	reply := RenderMessage(Message{Role: RoleAssistant, Content: "done", Timestamp: ts}, false)
	if !strings.HasPrefix(reply, "Assistant ") {
		t.Errorf("RenderMessage(assistant) = %q", reply)
	}
}

func TestPrintMessage_NotTerminal(t *testing.T) {
	var buf bytes.Buffer
	PrintMessage(&buf, Message{Role: RoleUser, Content: "hi", Timestamp: time.Now()})
	if !strings.HasPrefix(buf.String(), "You ") {
		t.Errorf("PrintMessage() = %q, want plain output", buf.String())
	}
}

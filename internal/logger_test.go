package internal

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetLogLevel(t *testing.T) {
	originalLevel := logLevel
	defer SetLogLevel(originalLevel)

	SetLogLevel(LogLevelDebug)
	if logLevel != LogLevelDebug {
		t.Errorf("SetLogLevel() logLevel = %v, want LogLevelDebug", logLevel)
	}

	SetLogLevel(LogLevelError)
	if logLevel != LogLevelError {
		t.Errorf("SetLogLevel() logLevel = %v, want LogLevelError", logLevel)
	}
}

func TestSetVerbose(t *testing.T) {
	originalLevel := logLevel
	defer SetLogLevel(originalLevel)

	SetVerbose(true)
	if logLevel != LogLevelDebug {
		t.Errorf("SetVerbose(true) logLevel = %v, want LogLevelDebug", logLevel)
	}

	SetVerbose(false)
	if logLevel != LogLevelInfo {
		t.Errorf("SetVerbose(false) logLevel = %v, want LogLevelInfo", logLevel)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    LogLevel
		wantErr bool
	}{
		{name: "error", want: LogLevelError},
		{name: "WARN", want: LogLevelWarn},
		{name: "warning", want: LogLevelWarn},
		{name: "", want: LogLevelInfo},
		{name: "debug", want: LogLevelDebug},
		{name: "trace", want: LogLevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestSetLogOutput_JSON(t *testing.T) {
	originalLevel := logLevel
	defer func() {
		_ = SetLogOutput(os.Stderr, "console")
		SetLogLevel(originalLevel)
	}()

	var buf bytes.Buffer
	if err := SetLogOutput(&buf, "json"); err != nil {
		t.Fatalf("SetLogOutput() error = %v", err)
	}
	SetLogLevel(LogLevelInfo)

	LogInfo("hello %s", "world")
	LogDebug("hidden")

	out := buf.String()
	if !strings.Contains(out, `"message":"hello world"`) {
		t.Errorf("expected JSON info line, got: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message should be filtered at info level, got: %q", out)
	}

	if err := SetLogOutput(&buf, "xml"); err == nil {
		t.Error("SetLogOutput() should reject unknown formats")
	}
}

func TestLogFunctions(t *testing.T) {
	// No return values; make sure nothing panics at any level.
	LogError("test error message")
	LogWarn("test warning message")
	LogInfo("test info message")
	LogDebug("test debug message")
}

func TestLogLevels(t *testing.T) {
	if LogLevelError >= LogLevelWarn {
		t.Error("LogLevelError should be less than LogLevelWarn")
	}
	if LogLevelWarn >= LogLevelInfo {
		t.Error("LogLevelWarn should be less than LogLevelInfo")
	}
	if LogLevelInfo >= LogLevelDebug {
		t.Error("LogLevelInfo should be less than LogLevelDebug")
	}
}

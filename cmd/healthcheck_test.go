package cmd

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthcheckCommand(t *testing.T) {
	env := newCmdEnv(t).withFixture(t)

	out, err := env.run(t, "healthcheck", "--details")
	if err != nil {
		t.Fatalf("healthcheck failed: %v\n%s", err, out)
	}
	for _, want := range []string{"Configuration valid", "sqlite storage available", "Found 2 conversation(s)", "Health check passed", env.dbPath} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHealthcheckCommand_NoData(t *testing.T) {
	env := newCmdEnv(t)

	out, err := env.run(t, "healthcheck")
	if err != nil {
		t.Fatalf("healthcheck failed: %v", err)
	}
	if !strings.Contains(out, "No conversations stored yet") {
		t.Errorf("output = %q", out)
	}
}

func TestHealthcheckCommand_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	env := newCmdEnv(t)
	t.Setenv("CREATOR_CHAT_API_URL", srv.URL)

	out, err := env.run(t, "healthcheck", "--remote")
	if err != nil {
		t.Fatalf("healthcheck failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "reachable (HTTP 401)") {
		t.Errorf("output = %q", out)
	}

	srv.Close()
	if _, err := env.run(t, "healthcheck", "--remote"); err == nil {
		t.Error("healthcheck should fail when the service is down")
	}
}

func TestHealthcheckCommandExists(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "healthcheck" {
			found = true
			if cmd.Flags().Lookup("details") == nil || cmd.Flags().Lookup("remote") == nil {
				t.Error("healthcheck flags not registered")
			}
			break
		}
	}

	if !found {
		t.Error("healthcheck command not found in root command")
	}
}

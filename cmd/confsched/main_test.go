package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSessionsAndRateCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/all" {
			_, _ = io.WriteString(w, `{"sessions":[{"id":"S1","title":"Concurrency","roomId":1}],"rooms":[{"id":1,"name":"Hall"}]}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	t.Setenv("CONFSCHED_ENDPOINT", srv.URL)
	t.Setenv("CONFSCHED_STORAGE", "file")
	dir := t.TempDir()

	run := func(args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(append([]string{"--dir", dir}, args...))
		if err := cmd.Execute(); err != nil {
			t.Fatalf("%v: %v", args, err)
		}
		return out.String()
	}

	if out := run("sessions"); !strings.Contains(out, "Concurrency") {
		t.Fatalf("expected session title in output, got %q", out)
	}
	if out := run("rate", "S1", "5"); !strings.Contains(out, "confirmed") {
		t.Fatalf("expected confirmed rating, got %q", out)
	}
	if out := run("ratings"); !strings.Contains(out, "S1") {
		t.Fatalf("expected persisted rating listed, got %q", out)
	}
	first := run("whoami")
	if second := run("whoami"); strings.TrimSpace(first) == "" || first != second {
		t.Fatalf("expected a stable user id, got %q then %q", first, second)
	}
}

func TestRateRejectsBadInput(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--dir", t.TempDir(), "rate", "S1", "five"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected non-numeric rating to fail")
	}
}

package bootstrap_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"confsched/internal/bootstrap"
	"confsched/internal/platform/config"
	"confsched/internal/platform/logging"
)

func TestNewWiresEngineAgainstRemote(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/all":
			_, _ = io.WriteString(w, `{"sessions":[{"id":"S1","title":"Go","roomId":1}],"rooms":[{"id":1,"name":"Hall"}]}`)
		case "/favorites":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	for _, storage := range []string{config.StorageFile, config.StorageSQLite, config.StorageMemory} {
		cfg, err := config.New(t.TempDir())
		if err != nil {
			t.Fatalf("config: %v", err)
		}
		cfg.Storage = storage
		cfg.Endpoint = srv.URL

		app, err := bootstrap.New(context.Background(), cfg, logging.Discard())
		if err != nil {
			t.Fatalf("%s: bootstrap: %v", storage, err)
		}
		if !strings.HasPrefix(app.UserID, "go-") {
			t.Fatalf("%s: unexpected user id %q", storage, app.UserID)
		}
		status, err := app.ScheduleCLI.Open(context.Background())
		if err != nil || status.Sessions != 1 {
			t.Fatalf("%s: expected one session, got %+v (%v)", storage, status, err)
		}
		if _, err := app.ScheduleCLI.SetFavorite(context.Background(), "S1", true); err != nil {
			t.Fatalf("%s: set favorite: %v", storage, err)
		}
		pending := app.PendingErrors()
		if len(pending) != 1 || !strings.Contains(pending[0], "favorites") {
			t.Fatalf("%s: expected favorite failure message, got %v", storage, pending)
		}
		if err := app.Close(); err != nil {
			t.Fatalf("%s: close: %v", storage, err)
		}
	}
}

func TestErrorsStreamReportedFailures(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/all" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Storage = config.StorageMemory
	cfg.Endpoint = srv.URL
	app, err := bootstrap.New(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer app.Close()

	if _, err := app.ScheduleCLI.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	select {
	case kind := <-app.Errors():
		if !strings.Contains(kind.Message(), "data") {
			t.Fatalf("expected a data failure, got %s", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no failure streamed")
	}
}

package out_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	scheduleoutadapter "confsched/internal/modules/schedule/adapter/out"
	"confsched/internal/modules/schedule/domain"
	apperrors "confsched/internal/platform/errors"
)

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   string
}

type fakeServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   map[string]int
}

func (f *fakeServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization"), body: string(body)})
		status := f.status[r.Method+" "+r.URL.Path]
		f.mu.Unlock()
		if status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, "nope")
			return
		}
		if r.URL.Path == "/all" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"sessions":[{"id":"S1","title":"Go","roomId":1}],"rooms":[{"id":1,"name":"Hall"}],"favorites":[{"sessionId":"S1"}]}`)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
}

func (f *fakeServer) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func TestHTTPRemoteRegistersOnceAndAuthenticates(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{status: map[string]int{"POST /users": http.StatusConflict}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	remote := scheduleoutadapter.NewHTTPRemote(srv.URL+"/", "go-user", 5*time.Second)
	ctx := context.Background()

	data, err := remote.FetchAll(ctx)
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if _, fav := data.FavoriteIDs()["S1"]; len(data.Sessions) != 1 || !fav {
		t.Fatalf("unexpected data: %+v", data)
	}
	if err := remote.AddFavorite(ctx, "S1"); err != nil {
		t.Fatalf("add favorite: %v", err)
	}
	if err := remote.AddRating(ctx, "S1", 4); err != nil {
		t.Fatalf("add rating: %v", err)
	}
	if err := remote.RemoveRating(ctx, "S1"); err != nil {
		t.Fatalf("remove rating: %v", err)
	}

	reqs := fake.recorded()
	if len(reqs) != 5 {
		t.Fatalf("expected 5 requests, got %d", len(reqs))
	}
	if reqs[0].method != http.MethodPost || reqs[0].path != "/users" || reqs[0].body != "go-user" {
		t.Fatalf("expected user registration first, got %+v", reqs[0])
	}
	for _, r := range reqs[1:] {
		if r.path == "/users" {
			t.Fatalf("expected a single registration")
		}
		if r.auth != "Bearer go-user" {
			t.Fatalf("expected bearer auth on %s %s, got %q", r.method, r.path, r.auth)
		}
	}

	var vote struct {
		SessionID string `json:"sessionId"`
		Rating    *int   `json:"rating"`
	}
	if err := json.Unmarshal([]byte(reqs[3].body), &vote); err != nil {
		t.Fatalf("decode vote body: %v", err)
	}
	if vote.SessionID != "S1" || vote.Rating == nil || *vote.Rating != 4 {
		t.Fatalf("unexpected vote body %s", reqs[3].body)
	}
	if reqs[4].method != http.MethodDelete || reqs[4].path != "/votes" {
		t.Fatalf("expected DELETE /votes, got %s %s", reqs[4].method, reqs[4].path)
	}
}

func TestHTTPRemoteSurfacesStatusCodes(t *testing.T) {
	t.Parallel()
	fake := &fakeServer{status: map[string]int{"POST /votes": domain.StatusTooLate}}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	remote := scheduleoutadapter.NewHTTPRemote(srv.URL, "go-user", 5*time.Second)
	err := remote.AddRating(context.Background(), "S1", 5)
	code, ok := domain.StatusCode(err)
	if !ok || code != domain.StatusTooLate {
		t.Fatalf("expected status 478, got %v", err)
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected body snippet in error, got %v", err)
	}
	if domain.ClassifyRatingFailure(err) != domain.LateToVote {
		t.Fatalf("expected late_to_vote classification")
	}
}

func TestHTTPRemoteTransportFailureIsUnavailable(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	remote := scheduleoutadapter.NewHTTPRemote(url, "go-user", time.Second)
	_, err := remote.FetchAll(context.Background())
	if !errors.Is(err, apperrors.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, ok := domain.StatusCode(err); ok {
		t.Fatalf("transport failure must not carry a status code")
	}
}

package out

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"confsched/internal/modules/schedule/domain"
	scheduleout "confsched/internal/modules/schedule/port/out"
	apperrors "confsched/internal/platform/errors"
)

const maxErrorBody = 512

// HTTPRemote talks JSON to the schedule service, authenticating every call
// with the installation's user id. The user is registered once per process
// before the first other call.
type HTTPRemote struct {
	baseURL string
	userID  string
	client  *http.Client

	mu         sync.Mutex
	registered bool
}

var _ scheduleout.Remote = (*HTTPRemote)(nil)

func NewHTTPRemote(baseURL, userID string, timeout time.Duration) *HTTPRemote {
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		client:  &http.Client{Timeout: timeout},
	}
}

type favoriteBody struct {
	SessionID string `json:"sessionId"`
}

type voteBody struct {
	SessionID string `json:"sessionId"`
	Rating    *int   `json:"rating,omitempty"`
}

func (r *HTTPRemote) FetchAll(ctx context.Context) (domain.AllData, error) {
	if err := r.ensureUser(ctx); err != nil {
		return domain.AllData{}, err
	}
	data := domain.AllData{}
	if err := r.do(ctx, "fetch all", http.MethodGet, "/all", nil, &data); err != nil {
		return domain.AllData{}, err
	}
	return data, nil
}

func (r *HTTPRemote) AddFavorite(ctx context.Context, sessionID string) error {
	if err := r.ensureUser(ctx); err != nil {
		return err
	}
	return r.do(ctx, "post favorite", http.MethodPost, "/favorites", favoriteBody{SessionID: sessionID}, nil)
}

func (r *HTTPRemote) RemoveFavorite(ctx context.Context, sessionID string) error {
	if err := r.ensureUser(ctx); err != nil {
		return err
	}
	return r.do(ctx, "delete favorite", http.MethodDelete, "/favorites", favoriteBody{SessionID: sessionID}, nil)
}

func (r *HTTPRemote) AddRating(ctx context.Context, sessionID string, rating domain.Rating) error {
	if err := r.ensureUser(ctx); err != nil {
		return err
	}
	code := int(rating)
	return r.do(ctx, "post vote", http.MethodPost, "/votes", voteBody{SessionID: sessionID, Rating: &code}, nil)
}

func (r *HTTPRemote) RemoveRating(ctx context.Context, sessionID string) error {
	if err := r.ensureUser(ctx); err != nil {
		return err
	}
	return r.do(ctx, "delete vote", http.MethodDelete, "/votes", voteBody{SessionID: sessionID}, nil)
}

// ensureUser registers the user id. Any HTTP response counts as registered:
// the service answers an already known id with a non-2xx status.
func (r *HTTPRemote) ensureUser(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.registered {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/users", strings.NewReader(r.userID))
	if err != nil {
		return fmt.Errorf("build create user request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("create user: %w: %w", apperrors.ErrUnavailable, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	r.registered = true
	return nil
}

func (r *HTTPRemote) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.userID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, apperrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.RemoteError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

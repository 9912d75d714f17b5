package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	scheduleoutadapter "confsched/internal/modules/schedule/adapter/out"
	"confsched/internal/modules/schedule/domain"
	"confsched/internal/modules/schedule/dto"
	scheduleout "confsched/internal/modules/schedule/port/out"
	"confsched/internal/modules/schedule/service"
	"confsched/internal/modules/schedule/usecase"
	apperrors "confsched/internal/platform/errors"
)

type stubRemote struct {
	data    domain.AllData
	fetches int
	voteErr error
}

func (s *stubRemote) FetchAll(context.Context) (domain.AllData, error) {
	s.fetches++
	return s.data, nil
}
func (s *stubRemote) AddFavorite(context.Context, string) error    { return nil }
func (s *stubRemote) RemoveFavorite(context.Context, string) error { return nil }
func (s *stubRemote) AddRating(context.Context, string, domain.Rating) error {
	return s.voteErr
}
func (s *stubRemote) RemoveRating(context.Context, string) error { return nil }

func dataset() domain.AllData {
	start := time.Date(2026, 5, 22, 10, 0, 0, 0, time.UTC)
	four := 4
	return domain.AllData{
		Rooms:    []domain.Room{{ID: 1, Name: "Hall A"}, {ID: 2, Name: "Hall B"}},
		Speakers: []domain.Speaker{{ID: "sp", FullName: "Grace"}},
		Categories: []domain.Category{{ID: 1, Title: "Track", Items: []domain.CategoryItem{
			{ID: 11, Name: "Server"},
		}}},
		Sessions: []domain.Session{
			{ID: "S1", Title: "Generics", RoomID: 1, SpeakerIDs: []string{"sp"}, CategoryItems: []int{11}, StartsAt: start, EndsAt: start.Add(40 * time.Minute)},
			{ID: "S2", Title: "Fuzzing", RoomID: 2, StartsAt: start, EndsAt: start.Add(40 * time.Minute)},
		},
		Favorites: []domain.Favorite{{SessionID: "S2"}},
		Votes:     []domain.Vote{{SessionID: "S1", Rating: &four}},
	}
}

func newInteractor(t *testing.T, remote *stubRemote) (*usecase.Interactor, *scheduleoutadapter.ChannelErrorSink) {
	t.Helper()
	sink := scheduleoutadapter.NewChannelErrorSink(8)
	engine := service.NewEngine(scheduleoutadapter.NewMemoryStore(), remote, sink)
	uc, ok := usecase.NewInteractor(engine).(*usecase.Interactor)
	if !ok {
		t.Fatalf("expected *usecase.Interactor")
	}
	return uc, sink
}

func TestOpenRefreshesOnCacheMissAndJoinsUserState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	remote := &stubRemote{data: dataset()}
	uc, _ := newInteractor(t, remote)

	status, err := uc.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !status.Loaded || status.Sessions != 2 || status.Favorites != 1 || status.Ratings != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if remote.fetches != 1 {
		t.Fatalf("expected one fetch on cold open, got %d", remote.fetches)
	}
	if len(status.Pending) != 0 {
		t.Fatalf("expected nothing pending after open, got %v", status.Pending)
	}

	sessions, err := uc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	s1 := sessions[0]
	if s1.Room != "Hall A" || s1.Rating != 4 || s1.Favorite || s1.Speakers[0] != "Grace" || s1.Categories[0] != "Server" {
		t.Fatalf("unexpected S1 output %+v", s1)
	}
	if !sessions[1].Favorite {
		t.Fatalf("expected S2 marked favorite")
	}

	favs, _ := uc.ListFavorites(ctx)
	if len(favs) != 1 || favs[0].ID != "S2" {
		t.Fatalf("expected favorites [S2], got %+v", favs)
	}
	ratings, _ := uc.ListRatings(ctx)
	if len(ratings) != 1 || ratings[0] != (dto.RatingOutput{SessionID: "S1", Rating: 4}) {
		t.Fatalf("unexpected ratings %+v", ratings)
	}
}

func TestGetSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	uc, _ := newInteractor(t, &stubRemote{data: dataset()})
	if _, err := uc.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	s, err := uc.GetSession(ctx, "S2")
	if err != nil || s.Title != "Fuzzing" || !s.Favorite {
		t.Fatalf("unexpected session %+v (%v)", s, err)
	}
	if _, err := uc.GetSession(ctx, "nope"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutationValidationAndOutcome(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	remote := &stubRemote{data: dataset(), voteErr: &domain.RemoteError{Op: "post vote", StatusCode: domain.StatusComeBackLater}}
	uc, sink := newInteractor(t, remote)

	if _, err := uc.SetFavorite(ctx, dto.FavoriteInput{SessionID: " "}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank id, got %v", err)
	}
	if _, err := uc.AddRating(ctx, dto.RatingInput{SessionID: "S1", Rating: 0}); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for rating 0, got %v", err)
	}

	out, err := uc.SetFavorite(ctx, dto.FavoriteInput{SessionID: "S1", IsFavorite: true})
	if err != nil || out.State != domain.MutationConfirmed.String() || out.Failure != "" {
		t.Fatalf("unexpected favorite outcome %+v (%v)", out, err)
	}

	out, err = uc.AddRating(ctx, dto.RatingInput{SessionID: "S1", Rating: 5})
	if err != nil {
		t.Fatalf("add rating: %v", err)
	}
	if out.State != domain.MutationRolledBack.String() || out.Failure != domain.EarlyToVote.String() || out.Message == "" {
		t.Fatalf("unexpected rating outcome %+v", out)
	}
	if kinds := sink.Drain(); len(kinds) != 1 || kinds[0] != domain.EarlyToVote {
		t.Fatalf("expected early_to_vote on the error channel, got %v", kinds)
	}
}

func TestWatchEmitsOnChange(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	uc, _ := newInteractor(t, &stubRemote{data: dataset()})

	updates := uc.Watch(ctx)
	if _, err := uc.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case status := <-updates:
			if status.Loaded && status.Sessions == 2 && !status.Updating {
				cancel()
				for range updates {
				}
				return
			}
		case <-deadline:
			t.Fatalf("no settled status observed")
		}
	}
}

var _ scheduleout.Remote = (*stubRemote)(nil)

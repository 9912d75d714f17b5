package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"confsched/internal/modules/schedule/domain"
	"confsched/internal/modules/schedule/dto"
	schedulein "confsched/internal/modules/schedule/port/in"
	"confsched/internal/modules/schedule/service"
	apperrors "confsched/internal/platform/errors"
)

type servicePort interface {
	Start(ctx context.Context) bool
	Wait()
	LoadLocal(ctx context.Context) bool
	Refresh(ctx context.Context)
	SetFavorite(ctx context.Context, sessionID string, isFavorite bool) domain.MutationResult
	AddRating(ctx context.Context, sessionID string, rating domain.Rating) domain.MutationResult
	RemoveRating(ctx context.Context, sessionID string) domain.MutationResult
	SessionByID(id string) (domain.SessionModel, bool)
	FavoriteIDs(ctx context.Context) map[string]struct{}
	CurrentRatings(ctx context.Context) map[string]domain.Rating
	LastRefresh() time.Time
	InFlight() map[string]domain.MutationState
	Projections() *service.Projections
}

type Interactor struct {
	svc servicePort
}

func NewInteractor(svc servicePort) schedulein.Usecase {
	return &Interactor{svc: svc}
}

func (i *Interactor) Open(ctx context.Context) (dto.StatusOutput, error) {
	if !i.svc.LoadLocal(ctx) {
		i.svc.Refresh(ctx)
	}
	return i.Status(ctx)
}

func (i *Interactor) Start(ctx context.Context) (dto.StatusOutput, error) {
	i.svc.Start(ctx)
	return i.Status(ctx)
}

func (i *Interactor) Wait() {
	i.svc.Wait()
}

func (i *Interactor) Refresh(ctx context.Context) (dto.StatusOutput, error) {
	i.svc.Refresh(ctx)
	return i.Status(ctx)
}

func (i *Interactor) SetFavorite(ctx context.Context, input dto.FavoriteInput) (dto.MutationOutput, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return dto.MutationOutput{}, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	return mapMutation(i.svc.SetFavorite(ctx, input.SessionID, input.IsFavorite))
}

func (i *Interactor) AddRating(ctx context.Context, input dto.RatingInput) (dto.MutationOutput, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return dto.MutationOutput{}, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	rating, err := domain.ParseRating(input.Rating)
	if err != nil {
		return dto.MutationOutput{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return mapMutation(i.svc.AddRating(ctx, input.SessionID, rating))
}

func (i *Interactor) RemoveRating(ctx context.Context, sessionID string) (dto.MutationOutput, error) {
	if strings.TrimSpace(sessionID) == "" {
		return dto.MutationOutput{}, fmt.Errorf("%w: session id is required", apperrors.ErrInvalidInput)
	}
	return mapMutation(i.svc.RemoveRating(ctx, sessionID))
}

func (i *Interactor) ListSessions(ctx context.Context) ([]dto.SessionOutput, error) {
	sessions, _ := i.svc.Projections().Sessions().Get()
	return i.mapSessions(ctx, sessions), nil
}

func (i *Interactor) ListFavorites(ctx context.Context) ([]dto.SessionOutput, error) {
	favorites, _ := i.svc.Projections().Favorites().Get()
	return i.mapSessions(ctx, favorites), nil
}

func (i *Interactor) ListRatings(ctx context.Context) ([]dto.RatingOutput, error) {
	ratings := i.svc.CurrentRatings(ctx)
	out := make([]dto.RatingOutput, 0, len(ratings))
	for id, r := range ratings {
		out = append(out, dto.RatingOutput{SessionID: id, Rating: int(r)})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].SessionID < out[b].SessionID })
	return out, nil
}

func (i *Interactor) GetSession(ctx context.Context, id string) (dto.SessionOutput, error) {
	model, ok := i.svc.SessionByID(id)
	if !ok {
		return dto.SessionOutput{}, fmt.Errorf("session %q: %w", id, apperrors.ErrNotFound)
	}
	return i.mapSessions(ctx, []domain.SessionModel{model})[0], nil
}

func (i *Interactor) Status(ctx context.Context) (dto.StatusOutput, error) {
	proj := i.svc.Projections()
	sessions, loaded := proj.Sessions().Get()
	updating, _ := proj.IsUpdating().Get()
	pending := map[string]string{}
	for id, state := range i.svc.InFlight() {
		pending[id] = state.String()
	}
	return dto.StatusOutput{
		Loaded:      loaded,
		Updating:    updating,
		Sessions:    len(sessions),
		Favorites:   len(i.svc.FavoriteIDs(ctx)),
		Ratings:     len(i.svc.CurrentRatings(ctx)),
		LastRefresh: i.svc.LastRefresh(),
		Pending:     pending,
	}, nil
}

// Watch emits a status whenever sessions, favorites, ratings or the refresh
// flag change. The channel closes when ctx ends.
func (i *Interactor) Watch(ctx context.Context) <-chan dto.StatusOutput {
	proj := i.svc.Projections()
	sessions := proj.Sessions().Subscribe(ctx)
	favorites := proj.Favorites().Subscribe(ctx)
	ratings := proj.Ratings().Subscribe(ctx)
	updating := proj.IsUpdating().Subscribe(ctx)

	out := make(chan dto.StatusOutput, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sessions:
				if !ok {
					return
				}
			case _, ok := <-favorites:
				if !ok {
					return
				}
			case _, ok := <-ratings:
				if !ok {
					return
				}
			case _, ok := <-updating:
				if !ok {
					return
				}
			}
			status, _ := i.Status(ctx)
			select {
			case <-out:
			default:
			}
			out <- status
		}
	}()
	return out
}

func (i *Interactor) mapSessions(ctx context.Context, sessions []domain.SessionModel) []dto.SessionOutput {
	favorites := i.svc.FavoriteIDs(ctx)
	ratings := i.svc.CurrentRatings(ctx)
	out := make([]dto.SessionOutput, 0, len(sessions))
	for _, s := range sessions {
		speakers := make([]string, 0, len(s.Speakers))
		for _, sp := range s.Speakers {
			speakers = append(speakers, sp.FullName)
		}
		categories := make([]string, 0, len(s.Categories))
		for _, c := range s.Categories {
			categories = append(categories, c.Name)
		}
		_, favorite := favorites[s.ID]
		out = append(out, dto.SessionOutput{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Room:        s.Room.Name,
			StartsAt:    s.StartsAt,
			EndsAt:      s.EndsAt,
			Speakers:    speakers,
			Categories:  categories,
			Favorite:    favorite,
			Rating:      int(ratings[s.ID]),
		})
	}
	return out
}

func mapMutation(result domain.MutationResult) (dto.MutationOutput, error) {
	if result.Err != nil {
		return dto.MutationOutput{}, result.Err
	}
	out := dto.MutationOutput{SessionID: result.SessionID, State: result.State.String()}
	if result.Failure != 0 {
		out.Failure = result.Failure.String()
		out.Message = result.Failure.Message()
	}
	return out, nil
}

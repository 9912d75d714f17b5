package in

import (
	"context"

	"confsched/internal/modules/schedule/dto"
)

type Usecase interface {
	// Open loads the local cache and refreshes in the foreground when it is empty.
	Open(ctx context.Context) (dto.StatusOutput, error)
	// Start loads the local cache and refreshes in the background.
	Start(ctx context.Context) (dto.StatusOutput, error)
	Wait()
	Refresh(ctx context.Context) (dto.StatusOutput, error)
	SetFavorite(ctx context.Context, input dto.FavoriteInput) (dto.MutationOutput, error)
	AddRating(ctx context.Context, input dto.RatingInput) (dto.MutationOutput, error)
	RemoveRating(ctx context.Context, sessionID string) (dto.MutationOutput, error)
	ListSessions(ctx context.Context) ([]dto.SessionOutput, error)
	ListFavorites(ctx context.Context) ([]dto.SessionOutput, error)
	ListRatings(ctx context.Context) ([]dto.RatingOutput, error)
	GetSession(ctx context.Context, id string) (dto.SessionOutput, error)
	Status(ctx context.Context) (dto.StatusOutput, error)
	Watch(ctx context.Context) <-chan dto.StatusOutput
}

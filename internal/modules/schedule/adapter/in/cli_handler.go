package in

import (
	"context"

	"confsched/internal/modules/schedule/dto"
	schedulein "confsched/internal/modules/schedule/port/in"
)

type CLIHandler struct {
	usecase schedulein.Usecase
}

func NewCLIHandler(usecase schedulein.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Open(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Open(ctx)
}

func (h CLIHandler) Start(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Start(ctx)
}

func (h CLIHandler) Wait() {
	h.usecase.Wait()
}

func (h CLIHandler) Refresh(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Refresh(ctx)
}

func (h CLIHandler) SetFavorite(ctx context.Context, sessionID string, isFavorite bool) (dto.MutationOutput, error) {
	return h.usecase.SetFavorite(ctx, dto.FavoriteInput{SessionID: sessionID, IsFavorite: isFavorite})
}

func (h CLIHandler) AddRating(ctx context.Context, sessionID string, rating int) (dto.MutationOutput, error) {
	return h.usecase.AddRating(ctx, dto.RatingInput{SessionID: sessionID, Rating: rating})
}

func (h CLIHandler) RemoveRating(ctx context.Context, sessionID string) (dto.MutationOutput, error) {
	return h.usecase.RemoveRating(ctx, sessionID)
}

func (h CLIHandler) ListSessions(ctx context.Context) ([]dto.SessionOutput, error) {
	return h.usecase.ListSessions(ctx)
}

func (h CLIHandler) ListFavorites(ctx context.Context) ([]dto.SessionOutput, error) {
	return h.usecase.ListFavorites(ctx)
}

func (h CLIHandler) ListRatings(ctx context.Context) ([]dto.RatingOutput, error) {
	return h.usecase.ListRatings(ctx)
}

func (h CLIHandler) GetSession(ctx context.Context, id string) (dto.SessionOutput, error) {
	return h.usecase.GetSession(ctx, id)
}

func (h CLIHandler) Status(ctx context.Context) (dto.StatusOutput, error) {
	return h.usecase.Status(ctx)
}

func (h CLIHandler) Watch(ctx context.Context) <-chan dto.StatusOutput {
	return h.usecase.Watch(ctx)
}

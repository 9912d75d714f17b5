package out

import (
	"context"

	"confsched/internal/modules/schedule/domain"
)

// Store is the local persistence the cache engine reads and writes
// synchronously. A write is durable once it returns.
type Store interface {
	// ReadBlob returns apperrors.ErrNotFound when key is absent.
	ReadBlob(ctx context.Context, key string) ([]byte, error)
	WriteBlob(ctx context.Context, key string, data []byte) error
	// ReadStringSet returns an empty set when key is absent.
	ReadStringSet(ctx context.Context, key string) (map[string]struct{}, error)
	WriteStringSet(ctx context.Context, key string, set map[string]struct{}) error
	// ReadIntMap returns an empty map when key is absent.
	ReadIntMap(ctx context.Context, key string) (map[string]int, error)
	WriteIntMap(ctx context.Context, key string, values map[string]int) error
	Clear(ctx context.Context, key string) error
}

// Remote is the schedule service. Non-success responses surface as
// *domain.RemoteError.
type Remote interface {
	FetchAll(ctx context.Context) (domain.AllData, error)
	AddFavorite(ctx context.Context, sessionID string) error
	RemoveFavorite(ctx context.Context, sessionID string) error
	AddRating(ctx context.Context, sessionID string, rating domain.Rating) error
	RemoveRating(ctx context.Context, sessionID string) error
}

type ErrorSink interface {
	Report(kind domain.ErrorKind)
}

// ErrorFunc adapts a plain function to ErrorSink.
type ErrorFunc func(kind domain.ErrorKind)

func (f ErrorFunc) Report(kind domain.ErrorKind) { f(kind) }

// Mutation operation labels used by Metrics.
const (
	OpAddFavorite    = "add_favorite"
	OpRemoveFavorite = "remove_favorite"
	OpAddRating      = "add_rating"
	OpRemoveRating   = "remove_rating"
	OpRepairFavorite = "repair_favorite"
)

type Metrics interface {
	RefreshFinished(ok bool)
	MutationFinished(op string, state domain.MutationState)
	ErrorReported(kind domain.ErrorKind)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	scheduleout "confsched/internal/modules/schedule/port/out"
	apperrors "confsched/internal/platform/errors"
	"confsched/internal/platform/id"
)

// EnsureUserID returns the installation identity, generating and persisting
// it on first use. An existing identity is never replaced.
func EnsureUserID(ctx context.Context, store scheduleout.Store, gen id.Generator) (string, error) {
	raw, err := store.ReadBlob(ctx, KeyUserID)
	switch {
	case err == nil:
		if userID := strings.TrimSpace(string(raw)); userID != "" {
			return userID, nil
		}
	case errors.Is(err, apperrors.ErrNotFound):
	default:
		return "", fmt.Errorf("read user id: %w", err)
	}
	userID := gen.New()
	if err := store.WriteBlob(ctx, KeyUserID, []byte(userID)); err != nil {
		return "", fmt.Errorf("write user id: %w", err)
	}
	return userID, nil
}

package dto

import "time"

type SessionOutput struct {
	ID          string
	Title       string
	Description string
	Room        string
	StartsAt    time.Time
	EndsAt      time.Time
	Speakers    []string
	Categories  []string
	Favorite    bool
	Rating      int
}

type RatingOutput struct {
	SessionID string
	Rating    int
}

type FavoriteInput struct {
	SessionID  string
	IsFavorite bool
}

type RatingInput struct {
	SessionID string
	Rating    int
}

type MutationOutput struct {
	SessionID string
	State     string
	Failure   string
	Message   string
}

type StatusOutput struct {
	Loaded      bool
	Updating    bool
	Sessions    int
	Favorites   int
	Ratings     int
	LastRefresh time.Time
	// Pending maps session ids with an unconfirmed change to its state.
	Pending map[string]string
}

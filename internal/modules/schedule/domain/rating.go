package domain

import (
	"fmt"
	"strconv"
)

// Rating is a session vote on a 1..5 scale.
type Rating int

const (
	RatingMin Rating = 1
	RatingMax Rating = 5
)

func ParseRating(code int) (Rating, error) {
	r := Rating(code)
	if !r.Valid() {
		return 0, fmt.Errorf("rating %d out of range %d..%d", code, RatingMin, RatingMax)
	}
	return r, nil
}

func (r Rating) Valid() bool {
	return r >= RatingMin && r <= RatingMax
}

func (r Rating) String() string {
	return strconv.Itoa(int(r))
}

// RatingsFromCodes converts persisted integer codes, dropping invalid ones.
func RatingsFromCodes(codes map[string]int) map[string]Rating {
	out := make(map[string]Rating, len(codes))
	for id, code := range codes {
		if r, err := ParseRating(code); err == nil {
			out[id] = r
		}
	}
	return out
}

func RatingCodes(ratings map[string]Rating) map[string]int {
	out := make(map[string]int, len(ratings))
	for id, r := range ratings {
		out[id] = int(r)
	}
	return out
}

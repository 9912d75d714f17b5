package domain

import (
	"errors"
	"fmt"
)

// Status codes the voting endpoint uses outside the HTTP standard.
const (
	StatusComeBackLater = 477
	StatusTooLate       = 478
)

// ErrorKind is the closed set of recoverable failures reported to the
// presentation layer.
type ErrorKind int

const (
	FailedToPostRating ErrorKind = iota + 1
	FailedToDeleteRating
	FailedToGetData
	EarlyToVote
	LateToVote
	FailedToPostFavorite
	FailedToDeleteFavorite
)

func (k ErrorKind) String() string {
	switch k {
	case FailedToPostRating:
		return "failed_to_post_rating"
	case FailedToDeleteRating:
		return "failed_to_delete_rating"
	case FailedToGetData:
		return "failed_to_get_data"
	case EarlyToVote:
		return "early_to_vote"
	case LateToVote:
		return "late_to_vote"
	case FailedToPostFavorite:
		return "failed_to_post_favorite"
	case FailedToDeleteFavorite:
		return "failed_to_delete_favorite"
	default:
		return "unknown"
	}
}

// Message is the user-facing text for the failure.
func (k ErrorKind) Message() string {
	switch k {
	case FailedToPostRating:
		return "Failed to post your vote. Please try again later."
	case FailedToDeleteRating:
		return "Failed to remove your vote. Please try again later."
	case FailedToGetData:
		return "Failed to get data from the server."
	case EarlyToVote:
		return "Voting is not open yet. Come back after the session starts."
	case LateToVote:
		return "Voting for this session is closed."
	case FailedToPostFavorite:
		return "Failed to add the session to favorites."
	case FailedToDeleteFavorite:
		return "Failed to remove the session from favorites."
	default:
		return "Unknown error."
	}
}

// RemoteError is a non-success response from the schedule service.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// StatusCode extracts the status of a RemoteError anywhere in err's chain.
func StatusCode(err error) (int, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote.StatusCode, true
	}
	return 0, false
}

// ClassifyRatingFailure maps a failed vote upsert to the reported kind.
func ClassifyRatingFailure(err error) ErrorKind {
	code, ok := StatusCode(err)
	if !ok {
		return FailedToPostRating
	}
	switch code {
	case StatusComeBackLater:
		return EarlyToVote
	case StatusTooLate:
		return LateToVote
	default:
		return FailedToPostRating
	}
}

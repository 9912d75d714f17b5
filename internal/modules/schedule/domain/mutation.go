package domain

// MutationState tracks one optimistic favorite or rating change.
//
//	Idle -> Optimistic -> Confirmed | RolledBack
type MutationState int

const (
	MutationIdle MutationState = iota
	MutationOptimistic
	MutationConfirmed
	MutationRolledBack
)

func (s MutationState) String() string {
	switch s {
	case MutationIdle:
		return "idle"
	case MutationOptimistic:
		return "optimistic"
	case MutationConfirmed:
		return "confirmed"
	case MutationRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// MutationResult is the terminal state of a mutation. Failure is zero unless
// the mutation was rolled back. Err carries input validation failures, in
// which case the mutation never left Idle.
type MutationResult struct {
	SessionID string
	State     MutationState
	Failure   ErrorKind
	Err       error
}

package id

import (
	"strings"

	"github.com/google/uuid"
)

// Generator creates opaque identifiers.
type Generator interface {
	New() string
}

// UserID produces installation identities of the form "<prefix>-<uuid>".
type UserID struct {
	Prefix string
}

func (g UserID) New() string {
	prefix := strings.TrimSpace(g.Prefix)
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "-" + uuid.NewString()
}

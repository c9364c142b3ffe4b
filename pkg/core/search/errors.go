package search

import (
	"errors"
	"fmt"

	"github.com/sanonone/nostrgraph/pkg/core/identity"
)

// ErrNotFound is returned when the round cap is exhausted without the two
// frontiers colliding.
var ErrNotFound = errors.New("separation not found")

// ErrNotEnoughLevels is returned by Ranks when fewer than three levels have
// been built.
var ErrNotEnoughLevels = errors.New("not enough levels")

// MissingContactListError reports a search target whose follow list could
// not be discovered at all. The search is fatal for that pair; no partial
// path is returned.
type MissingContactListError struct {
	Identity identity.PublicKey
}

func (e *MissingContactListError) Error() string {
	return fmt.Sprintf("missing contact list of %s", e.Identity)
}

// LevelNotPresentError reports a metadata request for a level that has not
// been built yet.
type LevelNotPresentError struct {
	Level int
}

func (e *LevelNotPresentError) Error() string {
	return fmt.Sprintf("level %d is not in the network", e.Level)
}

// VerifyExhaustedError is returned by FindVerified when every attempt
// produced a path that failed staleness verification.
type VerifyExhaustedError struct {
	Attempts int
}

func (e *VerifyExhaustedError) Error() string {
	return fmt.Sprintf("no verifiable path after %d attempts", e.Attempts)
}

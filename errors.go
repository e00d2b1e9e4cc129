package botix

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDuration     = errors.New("transition duration cannot be negative")
	ErrInvalidStructure    = errors.New("graph must have exactly one start state")
	ErrAmbiguousTransition = errors.New("state is the source of more than one transition")
	ErrNoResolver          = errors.New("branching transition needs a branch resolver")
	ErrUnknownBranch       = errors.New("branch label has no destination")
)

// StructureError reports a pool whose start state is missing or ambiguous.
type StructureError struct {
	Starts []StateID
}

func (e *StructureError) Error() string {
	if len(e.Starts) == 0 {
		return "graph has no start state"
	}
	return fmt.Sprintf("graph has %d start states %v, want exactly one", len(e.Starts), e.Starts)
}

func (e *StructureError) Unwrap() error { return ErrInvalidStructure }

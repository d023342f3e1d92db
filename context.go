package hsmx

import "github.com/comalice/hsmx/internal/primitives"

// ExtendedState is the thread-safe key/value store shared by a machine's actions and
// guards.
type ExtendedState = primitives.ExtendedState

// NewExtendedState creates an empty store.
func NewExtendedState() *ExtendedState {
	return primitives.NewExtendedState()
}

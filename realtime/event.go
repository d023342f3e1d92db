package realtime

import (
	"cmp"
	"slices"

	"github.com/comalice/hsmx/internal/primitives"
)

// EventWithMeta adds sequencing metadata for deterministic ordering.
type EventWithMeta struct {
	Event       primitives.Event `json:"event" yaml:"event"`
	SequenceNum uint64           `json:"seq" yaml:"seq"`
	Priority    int              `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// sortEvents orders a batch: higher priority first, then earlier sequence number.
func sortEvents(events []EventWithMeta) {
	slices.SortStableFunc(events, func(a, b EventWithMeta) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.SequenceNum, b.SequenceNum)
	})
}

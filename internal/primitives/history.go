package primitives

import "fmt"

// HistoryType is the history a composite state declares, or the history a transition or a
// clear request asks for.
type HistoryType string

const (
	HistoryNone    HistoryType = ""
	ShallowHistory HistoryType = "shallow"
	DeepHistory    HistoryType = "deep"
	// FullHistory declares both shallow and deep history. It is never a requested kind.
	FullHistory HistoryType = "full"
)

// String returns "none" for HistoryNone and the kind name otherwise.
func (h HistoryType) String() string {
	if h == HistoryNone {
		return "none"
	}
	return string(h)
}

// Valid reports whether h is one of the known kinds.
func (h HistoryType) Valid() bool {
	switch h {
	case HistoryNone, ShallowHistory, DeepHistory, FullHistory:
		return true
	}
	return false
}

// Allows reports whether a state declaring h supports an operation of kind requested.
func (h HistoryType) Allows(requested HistoryType) bool {
	switch requested {
	case ShallowHistory:
		return h == ShallowHistory || h == FullHistory
	case DeepHistory:
		return h == DeepHistory || h == FullHistory
	}
	return false
}

// ParseHistoryType accepts the names used in chart documents ("", "none", "shallow",
// "deep", "full").
func ParseHistoryType(s string) (HistoryType, error) {
	switch s {
	case "", "none":
		return HistoryNone, nil
	case "shallow":
		return ShallowHistory, nil
	case "deep":
		return DeepHistory, nil
	case "full":
		return FullHistory, nil
	}
	return HistoryNone, fmt.Errorf("unknown history kind %q", s)
}

package primitives

import (
	"fmt"
	"strings"
)

// Validation issue codes.
const (
	ErrCodeNoStates            = "NO_STATES"
	ErrCodeMissingID           = "MISSING_ID"
	ErrCodeDuplicateState      = "DUPLICATE_STATE"
	ErrCodeInvalidType         = "INVALID_TYPE"
	ErrCodeMissingInitial      = "MISSING_INITIAL"
	ErrCodeInitialNotFound     = "INITIAL_NOT_FOUND"
	ErrCodeTooFewRegions       = "TOO_FEW_REGIONS"
	ErrCodeAtomicChildren      = "ATOMIC_CHILDREN"
	ErrCodeInvalidHistory      = "INVALID_HISTORY"
	ErrCodeHistoryOnAtomic     = "HISTORY_ON_ATOMIC"
	ErrCodeEmptyEvent          = "EMPTY_EVENT"
	ErrCodeInvalidReaction     = "INVALID_REACTION"
	ErrCodeMissingTarget       = "MISSING_TARGET"
	ErrCodeInvalidTarget       = "INVALID_TARGET"
	ErrCodeMissingHandler      = "MISSING_HANDLER"
	ErrCodeHistoryInconsistent = "HISTORY_INCONSISTENT"
)

// ValidationIssue is one problem found in a machine definition.
type ValidationIssue struct {
	Code    string
	Message string
	Path    []string // e.g. ["A", "B", "on", "ev", "0"]
	Err     error    // nil means ErrStructure
}

func (v ValidationIssue) String() string {
	if len(v.Path) > 0 {
		return fmt.Sprintf("[%s] %s (at %s)", v.Code, v.Message, strings.Join(v.Path, "."))
	}
	return fmt.Sprintf("[%s] %s", v.Code, v.Message)
}

// ValidationError collects every issue found during validation.
type ValidationError struct {
	Issues []ValidationIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0].String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d issues:\n", len(e.Issues))
	for i, issue := range e.Issues {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, issue.String())
	}
	return b.String()
}

// Unwrap exposes the issue errors so errors.Is/As see ErrStructure,
// ErrHistoryInconsistency and *HistoryInconsistencyError.
func (e *ValidationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Err != nil {
			errs = append(errs, issue.Err)
		} else {
			errs = append(errs, ErrStructure)
		}
	}
	return errs
}

// AddIssue records a structural issue.
func (e *ValidationError) AddIssue(code, message string, path ...string) {
	e.Issues = append(e.Issues, ValidationIssue{
		Code:    code,
		Message: message,
		Path:    path,
	})
}

// AddError records an issue backed by a specific error.
func (e *ValidationError) AddError(code string, err error, path ...string) {
	e.Issues = append(e.Issues, ValidationIssue{
		Code:    code,
		Message: err.Error(),
		Path:    path,
		Err:     err,
	})
}

// HasIssues reports whether any issue was recorded.
func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// HasCode reports whether an issue with code was recorded.
func (e *ValidationError) HasCode(code string) bool {
	for _, issue := range e.Issues {
		if issue.Code == code {
			return true
		}
	}
	return false
}

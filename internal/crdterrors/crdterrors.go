// Package crdterrors collects the domain error sentinels shared across the
// CRDT packages and a small aggregation helper for batch validation, mirroring
// the way the reference implementation's Errors<T> type accumulates multiple
// causes of the same kind into one reportable value.
package crdterrors

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Domain error sentinels. Compare with errors.Is; when ApplyOperation fails
// with one of these, the operation it was given is returned unchanged
// alongside it.
var (
	ErrAnchorNotFound     = errors.New("crdt: anchor id not found")
	ErrAnchorsMisordered  = errors.New("crdt: succ precedes pred")
	ErrDuplicateConflict  = errors.New("crdt: id already present in conflict set")
	ErrRangeUnsupported   = errors.New("crdt: range delete unsupported on this variant")
	ErrInvalidDeleteRange = errors.New("crdt: delete range is misordered or spans multiple base ids")
	ErrIdsExhausted       = errors.New("crdt: identifier generator exhausted")
	ErrIdentifierSyntax   = errors.New("crdt: identifier segment fails syntax check")
	ErrSubIndexOverflow   = errors.New("crdt: value does not fit in the remaining 16-bit sub-index space")
)

// Aggregate collects zero or more errors of the same logical kind and reports
// them as a single wrapped error, so batch validation (e.g. constructing many
// Identifiers at once) can name every offending input instead of just the
// first one encountered.
type Aggregate struct {
	causes []error
}

// Add records cause if non-nil. Safe to call on a nil *Aggregate receiver is
// not supported; always start from a zero-value Aggregate.
func (a *Aggregate) Add(cause error) {
	if cause != nil {
		a.causes = append(a.causes, cause)
	}
}

// Len reports how many causes have been recorded.
func (a *Aggregate) Len() int {
	return len(a.causes)
}

// Err returns nil if no cause was recorded, otherwise an error wrapping every
// recorded cause. errors.Join keeps each cause individually reachable via
// errors.Is/errors.As, so a batch failure still satisfies errors.Is against
// whichever sentinel(s) caused it, the same as the single-cause path does.
func (a *Aggregate) Err() error {
	if len(a.causes) == 0 {
		return nil
	}
	return pkgerrors.Wrap(errors.Join(a.causes...), "crdt: aggregated validation errors")
}

// Causes returns the individually recorded causes in the order they were added.
func (a *Aggregate) Causes() []error {
	return a.causes
}

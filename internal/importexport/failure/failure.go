// Package failure classifies errors raised while restoring an export and
// describes the diagnostics a restore reports upward.
package failure

import (
	"errors"
	"fmt"
)

// Class separates failures that can never succeed from those that may on a
// later attempt.
type Class int

const (
	Retryable Class = iota
	Permanent
)

func (c Class) String() string {
	if c == Permanent {
		return "permanent"
	}
	return "retryable"
}

// permanent is implemented by errors that know retrying is pointless, such as
// *db.ValidationError.
type permanent interface {
	Permanent() bool
}

// Classify returns Permanent when any error in err's chain reports itself
// permanent, and Retryable otherwise.
func Classify(err error) Class {
	var p permanent
	if errors.As(err, &p) && p.Permanent() {
		return Permanent
	}
	return Retryable
}

// RelationFailure is one relation record that could not be restored.
type RelationFailure struct {
	RelationKey   string
	RelationIndex int
	Path          string
	Summary       string
	Class         Class
	Err           error
}

func (f *RelationFailure) Error() string {
	return fmt.Sprintf("%s[%d]: %v", f.Path, f.RelationIndex, f.Err)
}

func (f *RelationFailure) Unwrap() error { return f.Err }

// NoticeKind names an informational condition.
type NoticeKind string

const (
	// UnresolvedIdentity records an actor reference replaced by the fallback
	// actor.
	UnresolvedIdentity NoticeKind = "unresolved_identity"
	// UnresolvedMember records a membership record whose user does not exist.
	UnresolvedMember NoticeKind = "unresolved_member"
)

// Notice is a non-fatal condition worth showing to an operator. Notices are
// never failures.
type Notice struct {
	Kind          NoticeKind
	RelationKey   string
	RelationIndex int
	Path          string
	Message       string
}

// Warning reports a deferred step that did not complete after its retries.
type Warning struct {
	Action   string
	Attempts int
	Err      error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", w.Action, w.Attempts, w.Err)
}

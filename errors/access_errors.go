// errors/access_errors.go
package errors

import "errors"

var (
	// ErrUnauthenticated means no caller identity was present. It is
	// surfaced to the caller and never folded into a deny verdict.
	ErrUnauthenticated = errors.New("caller identity not present")

	// ErrForbidden means the caller is authenticated but lacks the
	// administrator capability required for a mutation.
	ErrForbidden = errors.New("administrator capability required")

	ErrInvalidAccessRequest = errors.New("invalid access request")

	// ErrIndeterminate means the evaluator could not complete policy
	// retrieval (store unavailable or deadline exceeded). Distinct from a
	// deny verdict at every layer: fail-closed-to-deny applies only to
	// "no rule matched", never to "could not determine".
	ErrIndeterminate = errors.New("access decision indeterminate")

	ErrRoleNotFound = errors.New("role not found")
)

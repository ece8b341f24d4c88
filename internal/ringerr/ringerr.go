// Package ringerr defines the recoverable error kinds the ring metadata
// engine can return to callers. Fatal programming-bug conditions
// (version regression, invariant violations) are not represented here;
// they are raised with logger.Fatal / panic at the call site instead.
package ringerr

import "fmt"

// Kind identifies the category of a recoverable ring error.
type Kind int

const (
	// UnknownEndpoint means a ring mutation referenced an endpoint absent
	// from the topology registry.
	UnknownEndpoint Kind = iota
	// TokenCollision means a bootstrap token is already owned by another
	// endpoint, either in the bootstrap set or the normal ring.
	TokenCollision
	// HostIdConflict means the endpoint<->host-id bijection was violated.
	HostIdConflict
	// EmptyRing means a positional query ran against a ring with no tokens.
	EmptyRing
	// UnknownToken means predecessor was asked about a token not present
	// in the sorted token set.
	UnknownToken
	// NotInCluster means the parser's resolve step found no match.
	NotInCluster
	// InvalidInput means neither host-id nor endpoint parsing succeeded
	// in auto mode.
	InvalidInput
	// StrategyFailure wraps an error returned by the replication strategy
	// collaborator.
	StrategyFailure
)

func (k Kind) String() string {
	switch k {
	case UnknownEndpoint:
		return "UnknownEndpoint"
	case TokenCollision:
		return "TokenCollision"
	case HostIdConflict:
		return "HostIdConflict"
	case EmptyRing:
		return "EmptyRing"
	case UnknownToken:
		return "UnknownToken"
	case NotInCluster:
		return "NotInCluster"
	case InvalidInput:
		return "InvalidInput"
	case StrategyFailure:
		return "StrategyFailure"
	default:
		return "Unknown"
	}
}

// RingError is a structured error carrying the failing operation name,
// the error kind, and (when applicable) the underlying cause.
type RingError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *RingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *RingError) Unwrap() error { return e.Err }

// New builds a RingError with no wrapped cause.
func New(op string, kind Kind) *RingError {
	return &RingError{Op: op, Kind: kind}
}

// Wrap builds a RingError wrapping cause under kind.
func Wrap(op string, kind Kind, cause error) *RingError {
	return &RingError{Op: op, Kind: kind, Err: cause}
}

// Is reports whether err is a *RingError of the given kind.
func Is(err error, kind Kind) bool {
	re, ok := err.(*RingError)
	return ok && re.Kind == kind
}

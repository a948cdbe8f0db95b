package remote

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// ErrNetwork is a transient failure; callers may retry by resolving again.
	ErrNetwork = errors.New("network failure")
	// ErrIntegrityViolation: more rows than expected, or a uniqueness conflict.
	ErrIntegrityViolation = errors.New("integrity violation")
	// ErrConflict is the duplicate-insert flavour of ErrIntegrityViolation.
	ErrConflict              = fmt.Errorf("%w: duplicate record", ErrIntegrityViolation)
	ErrConstraintViolation   = errors.New("constraint violation")
	ErrForbidden             = errors.New("forbidden")
	ErrAuthorizationRequired = errors.New("authorization required")
)

// Error describes a failed remote call. Kind is one of the sentinels above.
type Error struct {
	Op      string
	Target  string
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote %s %s: %v", e.Op, e.Target, e.Kind)
	}
	return fmt.Sprintf("remote %s %s: %v: %s", e.Op, e.Target, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Kind }

// FromStatus maps a gRPC failure onto the error taxonomy.
func FromStatus(op, target string, err error) error {
	s, ok := status.FromError(err)
	if !ok {
		return &Error{Op: op, Target: target, Kind: ErrNetwork, Message: err.Error()}
	}
	var kind error
	switch s.Code() {
	case codes.AlreadyExists:
		kind = ErrConflict
	case codes.Unauthenticated:
		kind = ErrAuthorizationRequired
	case codes.PermissionDenied:
		kind = ErrForbidden
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound, codes.OutOfRange:
		kind = ErrConstraintViolation
	default:
		kind = ErrNetwork
	}
	return &Error{Op: op, Target: target, Kind: kind, Message: s.Message()}
}

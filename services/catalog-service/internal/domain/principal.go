package domain

import (
	"errors"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated  = errors.New("sign-in required")
	ErrForbidden        = errors.New("not allowed")
	ErrUnknownProcedure = errors.New("unknown procedure")
	ErrInvalidPayload   = errors.New("invalid payload")
)

type Role int

const (
	RoleAnon Role = iota
	RoleUser
	RoleService
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleService:
		return "service"
	default:
		return "anon"
	}
}

// Principal is the caller of a catalog request.
type Principal struct {
	Role   Role
	UserID uuid.UUID
}

func Anonymous() Principal { return Principal{Role: RoleAnon} }

func ServiceRole() Principal { return Principal{Role: RoleService} }

func User(id uuid.UUID) Principal { return Principal{Role: RoleUser, UserID: id} }

package circulation

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is; use errors.As on *Error for the entity.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrRemoteFailure   = errors.New("remote failure")
)

type Entity string

const (
	EntityMember Entity = "member"
	EntityBook   Entity = "book"
	EntityLoan   Entity = "loan"
)

// Error describes a failed lending operation.
type Error struct {
	Kind   error
	Entity Entity
	ID     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Entity != "" {
		msg = fmt.Sprintf("%s %s: %s", e.Entity, e.ID, msg)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(entity Entity, id string, cause error) error {
	return &Error{Kind: ErrNotFound, Entity: entity, ID: id, Err: cause}
}

func conflict(entity Entity, id, reason string) error {
	return &Error{Kind: ErrConflict, Entity: entity, ID: id, Reason: reason}
}

func invalidArgument(reason string) error {
	return &Error{Kind: ErrInvalidArgument, Reason: reason}
}

func remoteFailure(entity Entity, id string, cause error) error {
	return &Error{Kind: ErrRemoteFailure, Entity: entity, ID: id, Err: cause}
}

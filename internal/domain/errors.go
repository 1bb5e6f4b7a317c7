package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers; it is the machine-readable part of
// every user-visible failure.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindInvalidState Kind = "invalid_state"
	KindInvalidInput Kind = "invalid_input"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

// Error carries a kind and a message safe to show to end users.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by kind and message so wrapped sentinels
// still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

var (
	// ErrQuizNotFound indicates the quiz does not exist (or is not visible).
	ErrQuizNotFound = &Error{Kind: KindNotFound, Message: "quiz not found"}
	// ErrUserNotFound indicates the referenced user does not exist or is inactive.
	ErrUserNotFound = &Error{Kind: KindNotFound, Message: "user not found"}
	// ErrAssignmentNotFound indicates no assignment matched.
	ErrAssignmentNotFound = &Error{Kind: KindNotFound, Message: "assignment not found"}
	// ErrDuplicateAssignment is returned when (quiz, assignedTo) already exists.
	ErrDuplicateAssignment = &Error{Kind: KindConflict, Message: "quiz already assigned to this user"}
	// ErrAssignmentNotPending is returned on re-submission of a finished assignment.
	ErrAssignmentNotPending = &Error{Kind: KindInvalidState, Message: "assignment is no longer pending"}
	// ErrAssignmentExpired is returned when an assignment's deadline has passed.
	ErrAssignmentExpired = &Error{Kind: KindInvalidState, Message: "assignment has expired"}
	// ErrNotQuizCreator is returned for creator-only operations.
	ErrNotQuizCreator = &Error{Kind: KindForbidden, Message: "only the quiz creator can do this"}
	// ErrInvalidAnswers is returned when the answers payload is missing.
	ErrInvalidAnswers = &Error{Kind: KindInvalidInput, Message: "answers must be an array"}
)

// Invalid builds an invalid-input error with a formatted message.
func Invalid(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of err, or KindInternal if it carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// PublicMessage returns the message of the outermost domain error, or ""
// when err is not a domain error.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

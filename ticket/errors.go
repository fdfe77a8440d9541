package ticket

import (
	"errors"
	"fmt"

	"ticket-bot/utils"
)

// Error codes.
const (
	CodeNotConfigured       = "NOT_CONFIGURED"
	CodeNotFound            = "NOT_FOUND"
	CodeForbidden           = "FORBIDDEN"
	CodeConflict            = "CONFLICT"
	CodeAlreadyRated        = "ALREADY_RATED"
	CodeInvalid             = "INVALID"
	CodeCollaboratorFailure = "COLLABORATOR_FAILURE"
	CodeInternal            = "INTERNAL"
)

// Error is a domain error carrying a stable code and a user-facing message.
type Error struct {
	Code    string
	Message string
	Reason  utils.Reason
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by code, so errors.Is(err, &Error{Code: CodeConflict}) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func NotConfigured() error {
	return &Error{Code: CodeNotConfigured, Message: utils.ReasonNotConfigured.Message(), Reason: utils.ReasonNotConfigured}
}

func NotFound(message string) error {
	return &Error{Code: CodeNotFound, Message: message}
}

func Forbidden(reason utils.Reason) error {
	return &Error{Code: CodeForbidden, Message: reason.Message(), Reason: reason}
}

func Conflict(message string) error {
	return &Error{Code: CodeConflict, Message: message}
}

func AlreadyRated() error {
	return &Error{Code: CodeAlreadyRated, Message: "You have already rated this ticket."}
}

func Invalid(message string) error {
	return &Error{Code: CodeInvalid, Message: message}
}

// CollaboratorFailure reports a failed essential external step.
func CollaboratorFailure(step string, err error) error {
	return &Error{
		Code:    CodeCollaboratorFailure,
		Message: fmt.Sprintf("Something went wrong while trying to %s. Please try again later.", step),
		Err:     err,
	}
}

func Internal(err error) error {
	return &Error{Code: CodeInternal, Message: "An unexpected error occurred.", Err: err}
}

// CodeOf returns the code of a domain error, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsConflict reports conflicts, including already-rated.
func IsConflict(err error) bool {
	code := CodeOf(err)
	return code == CodeConflict || code == CodeAlreadyRated
}

// denied converts a policy denial into a domain error. State denials are
// conflicts; everything else is forbidden.
func denied(d utils.Decision) error {
	switch d.Reason {
	case utils.ReasonNotConfigured:
		return NotConfigured()
	case utils.ReasonNoTicket:
		return NotFound(d.Reason.Message())
	case utils.ReasonTicketClosed, utils.ReasonAlreadyClaimed, utils.ReasonNotClaimed:
		return &Error{Code: CodeConflict, Message: d.Reason.Message(), Reason: d.Reason}
	default:
		return Forbidden(d.Reason)
	}
}

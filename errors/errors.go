package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

const (
	MissingIDError            = "Missing id parameter"
	MissingUsernameError      = "Missing username parameter"
	MissingLoggedUserError    = "Missing logged user username parameter"
	MissingUserDataError      = "User data not provided"
	MissingRatingError        = "Missing rating parameter"
	MissingUsernamesError     = "Missing oldUsername or newUsername parameter"
	OnlyHostsCreateError      = "Only hosts can create accommodations"
	OnlyHostsListError        = "Only hosts can get accommodations by user"
	AccommodationNotFound     = "Accommodation not found"
	AnnouncementFailedError   = "Accommodation created but the creation event could not be published"
	InvalidRequestFormatError = "Invalid request format"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidArgument
	KindPermissionDenied
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindNotFound:
		return "NotFound"
	default:
		return "Internal"
	}
}

// Error carries a Kind so the HTTP layer can pick a status without string matching.
type Error struct {
	Kind    Kind
	Message string
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

func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func InvalidArgument(message string) *Error {
	return &Error{Kind: KindInvalidArgument, Message: message}
}

func PermissionDenied(message string) *Error {
	return &Error{Kind: KindPermissionDenied, Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain, KindInternal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// StatusOf maps any error to an HTTP status, 500 for untyped errors.
func StatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

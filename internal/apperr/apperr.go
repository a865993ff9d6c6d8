// Package apperr defines the error taxonomy shared by every chat surface.
// A Code identifies one failure; its Kind decides how a transport reports it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindAuth        Kind = "auth"
	KindForbidden   Kind = "forbidden"
	KindNotFound    Kind = "not_found"
	KindNoCandidate Kind = "no_candidate"
	KindThrottled   Kind = "throttled"
	KindInternal    Kind = "internal"
)

// HTTPStatus maps a kind onto the REST surface.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindNoCandidate:
		return http.StatusAccepted
	case KindThrottled:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type Code string

const (
	CodeEmptyContent       Code = "EMPTY_CONTENT"
	CodeContentTooLong     Code = "CONTENT_TOO_LONG"
	CodePhoneNumber        Code = "CONTENT_PHONE_NUMBER"
	CodeInvalidRoomName    Code = "INVALID_ROOM_NAME"
	CodeDuplicateName      Code = "ROOM_DUPLICATE_NAME"
	CodeCapacityOutOfRange Code = "CAPACITY_OUT_OF_RANGE"
	CodeOwnerQuotaExceeded Code = "OWNER_QUOTA_EXCEEDED"
	CodeMissingPassword    Code = "MISSING_PASSWORD"
	CodeRoomFull           Code = "ROOM_FULL"
	CodeInvalidPayload     Code = "INVALID_PAYLOAD"
	CodeMissingAction      Code = "MISSING_ACTION"
	CodeUnknownAction      Code = "UNKNOWN_ACTION"

	CodeUnauthenticated Code = "UNAUTHENTICATED"

	CodeNotMember         Code = "NOT_MEMBER"
	CodePasswordRequired  Code = "PASSWORD_REQUIRED"
	CodePasswordIncorrect Code = "PASSWORD_INCORRECT"
	CodeNoSession         Code = "NO_SESSION"

	CodeRoomNotFound Code = "ROOM_NOT_FOUND"

	CodeNoCandidate Code = "NO_CANDIDATE"

	CodeRateLimited Code = "RATE_LIMITED"
	CodeBlocked     Code = "BLOCKED"

	CodeInternal Code = "INTERNAL"
)

var codeKinds = map[Code]Kind{
	CodeEmptyContent:       KindValidation,
	CodeContentTooLong:     KindValidation,
	CodePhoneNumber:        KindValidation,
	CodeInvalidRoomName:    KindValidation,
	CodeDuplicateName:      KindValidation,
	CodeCapacityOutOfRange: KindValidation,
	CodeOwnerQuotaExceeded: KindValidation,
	CodeMissingPassword:    KindValidation,
	CodeRoomFull:           KindValidation,
	CodeInvalidPayload:     KindValidation,
	CodeMissingAction:      KindValidation,
	CodeUnknownAction:      KindValidation,
	CodeUnauthenticated:    KindAuth,
	CodeNotMember:          KindForbidden,
	CodePasswordRequired:   KindForbidden,
	CodePasswordIncorrect:  KindForbidden,
	CodeNoSession:          KindForbidden,
	CodeRoomNotFound:       KindNotFound,
	CodeNoCandidate:        KindNoCandidate,
	CodeRateLimited:        KindThrottled,
	CodeBlocked:            KindThrottled,
}

func (c Code) Kind() Kind {
	if k, ok := codeKinds[c]; ok {
		return k
	}
	return KindInternal
}

// Error is a classified failure. Params fill the localized message template.
type Error struct {
	Code   Code
	Field  string
	Params []any
	Err    error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if len(e.Params) > 0 {
		msg += fmt.Sprint(e.Params...)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, params ...any) *Error {
	return &Error{Code: code, Params: params}
}

// Field attributes a validation failure to an input field.
func Field(code Code, field string) *Error {
	return &Error{Code: code, Field: field}
}

// Wrap classifies err under code unless it already carries a classification.
func Wrap(err error, code Code) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Code: code, Err: err}
}

// As returns the classified error in err's chain, treating anything
// unclassified as internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Err: err}
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return As(err).Code
}

func KindOf(err error) Kind {
	return CodeOf(err).Kind()
}

func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

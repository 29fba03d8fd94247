// Package domainerrors carries the protocol error taxonomy shared by the IdP,
// the weather service and the relying parties.
//
// Services return *Error values; transport code maps the Code to an HTTP status
// and a machine-readable "error" field. Messages are safe to show to callers,
// except for CodeInternal whose message is never written to a response body.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

const (
	CodeBadRequest           Code = "bad_request"
	CodeInvalidClient        Code = "invalid_client"
	CodeClientAuthentication Code = "client_authentication_failed"
	CodeInvalidRedirectURI   Code = "invalid_redirect_uri"
	CodeInvalidCredentials   Code = "invalid_credentials"
	CodeUnsupportedGrantType Code = "unsupported_grant_type"
	CodeInvalidGrant         Code = "invalid_grant"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeNotFound             Code = "not_found"
	CodeUpstreamUnavailable  Code = "upstream_unavailable"
	CodeRateLimited          Code = "rate_limited"
	CodeInternal             Code = "internal_error"
)

// Error is a domain error with a code and a caller-facing message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports equality on code and message so tests can use errors.Is with a
// freshly constructed value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a domain error.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// HasCode reports whether any error in the chain is a domain error with code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the first domain error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf returns the message of the first domain error in the chain.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// ToHTTPStatus maps a code to its response status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeInvalidClient, CodeInvalidRedirectURI,
		CodeUnsupportedGrantType, CodeInvalidGrant:
		return http.StatusBadRequest
	case CodeClientAuthentication, CodeInvalidCredentials, CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WireCode is the value written to the "error" field of a response. Client
// authentication failures share the OAuth "invalid_client" code with client
// mismatches; only the status differs.
func WireCode(code Code) string {
	switch code {
	case CodeClientAuthentication:
		return string(CodeInvalidClient)
	default:
		return string(code)
	}
}

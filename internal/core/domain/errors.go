package domain

import (
	"errors"
	"fmt"
)

// Kind classifies every failure surfaced by the booking core.
type Kind string

const (
	KindUnauthenticated   Kind = "unauthenticated"
	KindForbidden         Kind = "forbidden"
	KindNotFound          Kind = "not_found"
	KindSlotConflict      Kind = "slot_conflict"
	KindInvalidInput      Kind = "invalid_input"
	KindRemoteUnavailable Kind = "remote_unavailable"
	KindProviderRejected  Kind = "provider_rejected"
	KindUnknown           Kind = "unknown"
)

// ProviderReason is the closed set of identity provider rejections.
type ProviderReason string

const (
	ReasonInvalidEmail    ProviderReason = "invalid_email"
	ReasonUserNotFound    ProviderReason = "user_not_found"
	ReasonWrongCredential ProviderReason = "wrong_credential"
	ReasonUserDisabled    ProviderReason = "user_disabled"
	ReasonTooManyRequests ProviderReason = "too_many_requests"
	ReasonAlreadyInUse    ProviderReason = "already_in_use"
	ReasonWeakPassword    ProviderReason = "weak_password"
	ReasonNetworkError    ProviderReason = "network_error"
	ReasonUnknown         ProviderReason = "unknown"
)

var reasonMessages = map[ProviderReason]string{
	ReasonInvalidEmail:    "Invalid email address.",
	ReasonUserNotFound:    "No account found with this email.",
	ReasonWrongCredential: "Incorrect password.",
	ReasonUserDisabled:    "This account has been disabled.",
	ReasonTooManyRequests: "Too many failed login attempts. Please try again later.",
	ReasonAlreadyInUse:    "This email is already registered. Please try logging in.",
	ReasonWeakPassword:    "Password is too weak. Please use at least 6 characters.",
	ReasonNetworkError:    "Network error. Please check your connection and try again.",
	ReasonUnknown:         "Authentication failed.",
}

// Message returns the user-facing text for the reason.
func (r ProviderReason) Message() string {
	if msg, ok := reasonMessages[r]; ok {
		return msg
	}
	return reasonMessages[ReasonUnknown]
}

// Error is the classified error returned by every core operation.
type Error struct {
	Kind   Kind
	Reason ProviderReason // only set for KindProviderRejected
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind, and by reason when the target names one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Msg: "please sign in to continue"}
	ErrForbidden         = &Error{Kind: KindForbidden, Msg: "access forbidden"}
	ErrNotFound          = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrSlotConflict      = &Error{Kind: KindSlotConflict, Msg: "This time slot is already booked. Please select another time."}
	ErrInvalidInput      = &Error{Kind: KindInvalidInput, Msg: "invalid input"}
	ErrRemoteUnavailable = &Error{Kind: KindRemoteUnavailable, Msg: "service temporarily unavailable"}
	ErrProviderRejected  = &Error{Kind: KindProviderRejected, Msg: "authentication failed"}

	ErrInvalidTransition = errors.New("invalid status transition")
)

// NewError builds a classified error.
func NewError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// InvalidInput reports a rejected request field.
func InvalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Msg: msg}
}

// Unavailable wraps a failed remote call.
func Unavailable(op string, cause error) *Error {
	return &Error{Kind: KindRemoteUnavailable, Msg: op, Err: cause}
}

// Rejected builds a provider rejection carrying its user-facing message.
func Rejected(reason ProviderReason, cause error) *Error {
	return &Error{Kind: KindProviderRejected, Reason: reason, Msg: reason.Message(), Err: cause}
}

// KindOf returns the kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ReasonOf returns the provider reason carried by err, if any.
func ReasonOf(err error) ProviderReason {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// Message returns the text recorded in the session error channel.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}

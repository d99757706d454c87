package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Repositories and services wrap these so callers can classify failures without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	ErrRecipientNotFound = errors.New("recipient not found")
	ErrNoPushToken       = errors.New("no push token")
	ErrPushRejected      = errors.New("push rejected")
	ErrInvalidToken      = errors.New("invalid push token")
	ErrStore             = errors.New("store failure")
	ErrConfig            = errors.New("invalid configuration")
)

// Error kinds attached to log events and metrics.
const (
	KindRecipientNotFound = "recipient_not_found"
	KindNoPushToken       = "no_push_token"
	KindPushRejected      = "push_rejected"
	KindStore             = "store"
	KindConfig            = "config"
	KindValidation        = "validation"
	KindInternal          = "internal"
)

// Kind classifies err into one of the Kind* constants.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrRecipientNotFound):
		return KindRecipientNotFound
	case errors.Is(err, ErrNoPushToken):
		return KindNoPushToken
	case errors.Is(err, ErrPushRejected), errors.Is(err, ErrInvalidToken):
		return KindPushRejected
	case errors.Is(err, ErrStore), errors.Is(err, ErrNotFound):
		return KindStore
	case errors.Is(err, ErrConfig):
		return KindConfig
	case errors.Is(err, ErrBadRequest):
		return KindValidation
	default:
		return KindInternal
	}
}

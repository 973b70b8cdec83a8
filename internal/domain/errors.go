package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so callers (CLI, HTTP handlers, run reports) can classify
// failures without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrCredential means no bearer token could be minted. Fatal for a run.
	ErrCredential = errors.New("credential error")
	// ErrAudienceResolution means the directory could not be read at the start
	// of a run. Fatal for a run.
	ErrAudienceResolution = errors.New("audience resolution error")
	// ErrTransientDelivery is a gateway failure that may succeed on a later run.
	ErrTransientDelivery = errors.New("transient delivery error")
	// ErrPermanentDelivery means the device token will never succeed again.
	ErrPermanentDelivery = errors.New("permanent delivery error")
)

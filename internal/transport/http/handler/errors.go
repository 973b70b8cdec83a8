package handler

import (
	"errors"
	"net/http"

	"github.com/go-push-scheduler/internal/domain"
)

// httpError maps a service error to a status code. Upstream failures
// (credential minting, directory reads) surface as 502.
func httpError(err error) int {
	switch {
	case errors.Is(err, domain.ErrCredential), errors.Is(err, domain.ErrAudienceResolution):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

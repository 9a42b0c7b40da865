package api

import (
	"errors"
	"net/http"

	"permanentes/internal/listing"
	"permanentes/internal/registry"
)

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, listing.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, listing.ErrInvalidTitle),
		errors.Is(err, listing.ErrTitleRequired),
		errors.Is(err, listing.ErrInvalidIdentifier),
		errors.Is(err, listing.ErrCreatorRequired),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

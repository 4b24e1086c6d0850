package httpadapter

import (
	"net/http"

	"github.com/glowlab/dermascan/internal/core/domain"
)

// Only validation failures surface to the caller as errors; every other
// failure mode is absorbed into a degraded report upstream.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

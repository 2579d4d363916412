package apperr

import "net/http"

// Status maps an error to the HTTP status the boundary should answer with.
// Scope violations map to 500: they signal a bug in request wiring, not a
// client mistake, and the client message stays generic.
func Status(err error) int {
	switch CodeOf(err) {
	case CodeAuthenticationRequired:
		return http.StatusUnauthorized
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

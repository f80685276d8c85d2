package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rbacgate/rbacgate/internal/shared"
)

// StatusFor maps a domain error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadBody), errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUnauthenticated), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden), errors.Is(err, shared.ErrAccountInactive):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	problem := ProblemDetail{Status: status, Title: titleFor(err, status)}
	switch {
	case status == http.StatusInternalServerError:
		problem.Detail = "internal server error"
	case errors.Is(err, ErrBadBody):
		problem.Detail = "request body must be a single JSON object"
	default:
		problem.Detail = shared.UserSafeMessage(err)
	}
	var verr *shared.ValidationError
	if errors.As(err, &verr) {
		problem.Errors = verr.Fields
	}
	writeProblem(w, problem)
}

// Fail logs server-side failures before responding. Client errors are not logged.
func Fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, msg string, err error) {
	if StatusFor(err) >= http.StatusInternalServerError && logger != nil {
		logger.ErrorContext(r.Context(), msg,
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	RespondError(w, err)
}

func titleFor(err error, status int) string {
	switch {
	case errors.Is(err, ErrBadBody), errors.Is(err, shared.ErrValidation):
		return "ValidationError"
	case errors.Is(err, shared.ErrConflict):
		return "ConflictError"
	case errors.Is(err, shared.ErrNotFound):
		return "NotFoundError"
	case status == http.StatusUnauthorized:
		return "AuthenticationError"
	case status == http.StatusForbidden:
		return "AuthorizationError"
	default:
		return "InternalError"
	}
}

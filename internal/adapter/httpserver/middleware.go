package httpserver

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/decept/internal/domain"
	"github.com/pscheid92/decept/internal/platform/correlation"
	apperrors "github.com/pscheid92/decept/internal/platform/errors"
)

// Headers set by the platform proxy in front of the game.
const (
	headerUserID = "X-User-Id"
	headerPostID = "X-Post-Id"
)

const (
	ctxKeyUserID = "userID"
	ctxKeyPostID = "postID"
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromInbound(c.Request().Header.Get(correlation.Header))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

// identityMiddleware copies the proxy identity headers into the echo context.
// Absent headers are not an error here; the use cases decide what they need.
func identityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(ctxKeyUserID, strings.TrimSpace(c.Request().Header.Get(headerUserID)))
		c.Set(ctxKeyPostID, strings.TrimSpace(c.Request().Header.Get(headerPostID)))
		return next(c)
	}
}

func userIDFrom(c echo.Context) string {
	id, _ := c.Get(ctxKeyUserID).(string)
	return id
}

func postIDFrom(c echo.Context) string {
	id, _ := c.Get(ctxKeyPostID).(string)
	return id
}

// requireJobToken guards the internal endpoints with a shared bearer secret.
// An empty token leaves them open, which config only allows outside production.
func requireJobToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			got, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return apperrors.UnauthenticatedError("invalid job token")
			}
			return next(c)
		}
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				err = WrapHTTPError(httpErr)
			}

			return writeError(c, apperrors.AsStructuredError(err))
		}
	}
}

func writeError(c echo.Context, err *apperrors.Error) error {
	logError(c, err)
	if werr := c.JSON(err.HTTPStatus(), err.ToResponse()); werr != nil {
		return fmt.Errorf("failed to write error response: %w", werr)
	}
	return nil
}

// mapDomainError turns a use-case error into the structured error the client sees.
func mapDomainError(err error) *apperrors.Error {
	var structuredErr *apperrors.Error
	if errors.As(err, &structuredErr) {
		return structuredErr
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return apperrors.UnauthenticatedError(domain.ErrUnauthenticated.Error())
	case errors.Is(err, domain.ErrNoPostContext),
		errors.Is(err, domain.ErrMissingPostID),
		errors.Is(err, domain.ErrInvalidStatement),
		errors.Is(err, domain.ErrInvalidChoice),
		errors.Is(err, domain.ErrInappropriateContent):
		return apperrors.ValidationError(err.Error())
	case errors.Is(err, domain.ErrPostNotFound):
		return apperrors.NotFoundError(domain.ErrPostNotFound.Error())
	case errors.Is(err, domain.ErrSelfVote),
		errors.Is(err, domain.ErrPostRevealed),
		errors.Is(err, domain.ErrAlreadyVoted):
		return apperrors.ForbiddenError(err.Error())
	case errors.Is(err, domain.ErrPostExists):
		return apperrors.ConflictError(domain.ErrPostExists.Error())
	case errors.Is(err, domain.ErrRateLimited):
		return apperrors.RateLimitedError(err.Error())
	default:
		return apperrors.InternalError("internal server error", err)
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := userIDFrom(c); userID != "" {
		attrs = append(attrs, "user_id", userID)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeUnauthenticated, apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Client error", attrs...)
	case apperrors.TypeForbidden, apperrors.TypeRateLimited:
		slog.InfoContext(ctx, "Request refused", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok && msg != "" {
		message = msg
	}
	if message == "" {
		message = "internal server error"
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthenticated
	case http.StatusForbidden:
		errType = apperrors.TypeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusTooManyRequests:
		errType = apperrors.TypeRateLimited
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = apperrors.TypeExternal
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}

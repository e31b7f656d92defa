package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", ValidationError("bad statement"), TypeValidation, http.StatusBadRequest},
		{"unauthenticated", UnauthenticatedError("login required"), TypeUnauthenticated, http.StatusUnauthorized},
		{"forbidden", ForbiddenError("cannot vote on your own post"), TypeForbidden, http.StatusForbidden},
		{"not_found", NotFoundError("post not found"), TypeNotFound, http.StatusNotFound},
		{"conflict", ConflictError("post already has statements"), TypeConflict, http.StatusConflict},
		{"rate_limited", RateLimitedError("daily limit reached"), TypeRateLimited, http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus())
			assert.Nil(t, tt.err.Cause)
			assert.NotNil(t, tt.err.Context)
			assert.Contains(t, tt.err.Error(), string(tt.wantType))
		})
	}
}

func TestInternalError(t *testing.T) {
	cause := fmt.Errorf("redis connection refused")
	err := InternalError("failed to record vote", cause)

	assert.Equal(t, TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
	assert.Contains(t, err.Error(), "failed to record vote")
	assert.Contains(t, err.Error(), "redis connection refused")
}

func TestInternalErrorWithoutCause(t *testing.T) {
	err := InternalError("something went wrong", nil)

	assert.Nil(t, err.Cause)
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestExternalError(t *testing.T) {
	cause := fmt.Errorf("platform api timeout")
	err := ExternalError("failed to create platform post", cause)

	assert.Equal(t, TypeExternal, err.Type)
	assert.Equal(t, http.StatusBadGateway, err.HTTPStatus())
	assert.Contains(t, err.Error(), "platform api timeout")
}

func TestWithFieldChaining(t *testing.T) {
	err := ForbiddenError("already voted").
		WithField("post_id", "t3_abc").
		WithField("user_id", "t2_xyz")

	assert.Len(t, err.Context, 2)
	assert.Equal(t, "t3_abc", err.Context["post_id"])
	assert.Equal(t, "t2_xyz", err.Context["user_id"])
}

func TestWithFieldNilMap(t *testing.T) {
	err := &Error{Type: TypeValidation, Message: "test"}

	err = err.WithField("key", "value")

	assert.Equal(t, "value", err.Context["key"])
}

func TestToResponse(t *testing.T) {
	err := ValidationError("statement too short").WithField("min_length", 5)

	resp := err.ToResponse()

	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "statement too short", resp.Error)
	assert.Equal(t, TypeValidation, resp.Type)
	assert.Equal(t, 5, resp.Context["min_length"])
}

func TestUnwrapAndIs(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := InternalError("wrapped", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
	assert.Nil(t, errors.Unwrap(ValidationError("no cause")))
}

func TestAsStructuredError(t *testing.T) {
	original := NotFoundError("post not found")
	assert.Same(t, original, AsStructuredError(original))

	wrapped := fmt.Errorf("handler: %w", original)
	result := AsStructuredError(wrapped)
	require.NotNil(t, result)
	assert.Equal(t, TypeNotFound, result.Type)

	plain := fmt.Errorf("standard error")
	result = AsStructuredError(plain)
	assert.Equal(t, TypeInternal, result.Type)
	assert.Equal(t, "internal server error", result.Message)
	assert.Equal(t, plain, result.Cause)

	assert.Nil(t, AsStructuredError(nil))
}

func TestHTTPStatusUnknownType(t *testing.T) {
	err := &Error{Type: ErrorType("unknown")}
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

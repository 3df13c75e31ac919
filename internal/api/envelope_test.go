package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/http/response"
)

func transform(t *testing.T, status int, v any) response.Envelope {
	t.Helper()
	out, err := EnvelopeTransformer(nil, fmt.Sprint(status), v)
	require.NoError(t, err)
	env, ok := out.(response.Envelope)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, EnvelopeVersion, env.Version)
	return env
}

func TestEnvelopeTransformer_WrapsSuccess(t *testing.T) {
	env := transform(t, http.StatusOK, map[string]string{"id": "lnk_1"})

	assert.True(t, env.Success)
	assert.Equal(t, map[string]string{"id": "lnk_1"}, env.Data)
	assert.Nil(t, env.Error)
}

func TestEnvelopeTransformer_PassesEnvelopeThrough(t *testing.T) {
	in := response.Fail("RATE_LIMITED", "slow down", nil)

	env := transform(t, http.StatusTooManyRequests, in)

	assert.Equal(t, in, env)
}

func TestEnvelopeTransformer_APIError(t *testing.T) {
	env := transform(t, http.StatusBadRequest, &APIError{
		status:  http.StatusBadRequest,
		Code:    "VALIDATION",
		Message: "validation failed",
		Details: map[string]string{"url": "is required"},
	})

	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION", env.Error.Code)
	assert.Equal(t, map[string]string{"url": "is required"}, env.Error.Details)
}

func TestEnvelopeTransformer_DomainErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		err     error
		code    string
		message string
	}{
		{"not found", http.StatusNotFound, domainerrors.NotFound("link not found"), "NOT_FOUND", "link not found"},
		{"wrapped conflict", http.StatusConflict, fmt.Errorf("save: %w", domainerrors.Conflict("link with this URL already exists")), "CONFLICT", "link with this URL already exists"},
		{"internal hidden", http.StatusInternalServerError, domainerrors.Internal("disk on fire"), "INTERNAL", internalMessage},
		{"plain 500 hidden", http.StatusInternalServerError, errors.New("sql: connection refused"), "INTERNAL", internalMessage},
		{"plain 4xx", http.StatusForbidden, errors.New("nope"), "FORBIDDEN", "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := transform(t, tt.status, tt.err)

			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
			assert.Equal(t, tt.message, env.Error.Message)
		})
	}
}

func TestNewAPIError(t *testing.T) {
	RegisterErrorHandler(nil)

	t.Run("domain error keeps its status", func(t *testing.T) {
		err := huma.NewError(http.StatusInternalServerError, "boom", domainerrors.NotFound("tag not found"))
		assert.Equal(t, http.StatusNotFound, err.GetStatus())
		assert.Equal(t, "NOT_FOUND", err.(*APIError).Code)
	})

	t.Run("schema failures become validation with field details", func(t *testing.T) {
		err := huma.NewError(http.StatusUnprocessableEntity, "validation failed",
			&huma.ErrorDetail{Location: "body.email", Message: "expected required property email to be present"},
			&huma.ErrorDetail{Location: "query.limit", Message: "expected number <= 100"},
		)
		apiErr := err.(*APIError)
		assert.Equal(t, http.StatusBadRequest, apiErr.GetStatus())
		assert.Equal(t, "VALIDATION", apiErr.Code)
		assert.Equal(t, map[string]string{
			"email": "expected required property email to be present",
			"limit": "expected number <= 100",
		}, apiErr.Details)
	})

	t.Run("server errors are generic", func(t *testing.T) {
		err := huma.NewError(http.StatusInternalServerError, "pq: relation does not exist", errors.New("secret"))
		apiErr := err.(*APIError)
		assert.Equal(t, "INTERNAL", apiErr.Code)
		assert.Equal(t, internalMessage, apiErr.Message)
	})

	t.Run("other statuses map to codes", func(t *testing.T) {
		err := huma.NewError(http.StatusTooManyRequests, "too many requests")
		assert.Equal(t, "RATE_LIMITED", err.(*APIError).Code)
	})
}

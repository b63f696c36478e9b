package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnresolvedReference_Details(t *testing.T) {
	err := NewUnresolvedReference("trips.txt", "route_id", "foreign key", "routes.txt.route_id")

	assert.Equal(t, CodeUnresolvedReference, err.Code)
	assert.Equal(t, "trips.txt", err.Details["table"])
	assert.Equal(t, "route_id", err.Details["field"])
	assert.Contains(t, err.Error(), "routes.txt.route_id")
	assert.True(t, IsSchemaError(err))
}

func TestAsAppError_ThroughWrapping(t *testing.T) {
	base := NewKeyConflict("stop_times.txt", "two sequence fields")
	wrapped := fmt.Errorf("build schema: %w", base)

	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Same(t, base, got)
	assert.True(t, IsSchemaError(wrapped))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(wrapped))
}

func TestInvalidInput_UnwrapsCause(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := NewInvalidInput("cannot open feed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(err))
	assert.False(t, IsSchemaError(err))
	assert.False(t, IsNotFound(err))
}

func TestNewSchema_OmitsEmptyField(t *testing.T) {
	err := NewSchema("agency.txt", "", "no fields declared")
	_, hasField := err.Details["field"]
	assert.False(t, hasField)

	err = NewSchema("agency.txt", "agency_id", "duplicate field").WithDetail("index", 3)
	assert.Equal(t, "agency_id", err.Details["field"])
	assert.Equal(t, 3, err.Details["index"])
}

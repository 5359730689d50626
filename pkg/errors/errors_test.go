package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentityByCode(t *testing.T) {
	clone := Clone(ErrSlotTaken, "new time slot is not available")

	assert.True(t, errors.Is(clone, ErrSlotTaken))
	assert.False(t, errors.Is(clone, ErrConflict))
	assert.Equal(t, http.StatusConflict, clone.Status)
	assert.Equal(t, "this time slot is no longer available, please pick another time", ErrSlotTaken.Message)
}

func TestFromErrorWrapsUnknownErrors(t *testing.T) {
	appErr := FromError(fmt.Errorf("dial tcp: refused"))

	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
}

func TestFromErrorFindsWrappedAppError(t *testing.T) {
	wrapped := fmt.Errorf("create booking: %w", WithField(ErrInvalidEmail, "email", ""))

	appErr := FromError(wrapped)

	assert.Equal(t, ErrInvalidEmail.Code, appErr.Code)
	assert.Equal(t, "email", appErr.Field)
	assert.Empty(t, ErrInvalidEmail.Field)
}

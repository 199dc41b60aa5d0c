package signererr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mrz1836/signerd/pkg/signererr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignerErrorIs(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", signererr.ErrSignerBusy)
	assert.True(t, errors.Is(wrapped, signererr.ErrSignerBusy))
	assert.False(t, errors.Is(wrapped, signererr.ErrWrongPassword))
}

func TestWrapPreservesCode(t *testing.T) {
	err := signererr.Wrap(signererr.ErrDecryptionFailed, "loading state for dolphin")

	var se *signererr.SignerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, signererr.ErrDecryptionFailed.Code, se.Code)
	assert.Equal(t, signererr.ExitAuth, signererr.ExitCode(err))
	assert.Equal(t, 401, signererr.HTTPStatus(err))
}

func TestWrapNilIsNil(t *testing.T) {
	assert.NoError(t, signererr.Wrap(nil, "anything"))
}

func TestExitCodeDefaults(t *testing.T) {
	assert.Equal(t, signererr.ExitSuccess, signererr.ExitCode(nil))
	assert.Equal(t, signererr.ExitGeneral, signererr.ExitCode(errors.New("plain")))
}

func TestWithDetails(t *testing.T) {
	err := signererr.WithDetails(signererr.ErrStateNotFound, map[string]string{"network": "dolphin"})
	assert.Contains(t, err.Error(), "network: dolphin")
}

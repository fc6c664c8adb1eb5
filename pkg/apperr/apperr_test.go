package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKinds_SurviveWrapping(t *testing.T) {
	err := fmt.Errorf("checkout: %w", BadRequest("course %s not published", "c1"))
	require.True(t, errors.Is(err, ErrBadRequest))
	require.False(t, errors.Is(err, ErrNotFound))
	require.Contains(t, err.Error(), "course c1 not published")
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("create session", cause)
	require.True(t, errors.Is(err, ErrInternal))
	require.True(t, errors.Is(err, cause))
}

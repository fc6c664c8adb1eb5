package tool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	a, b := GenerateUUIDV7(), GenerateUUIDV7()
	require.NotEqual(t, a, b)
	u, err := uuid.Parse(a)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), u.Version())
	require.Less(t, a, b)
}

func TestIdempotencyKey(t *testing.T) {
	require.Equal(t, "connect-account-t1", IdempotencyKey("connect-account", "t1"))
	require.Equal(t, "course-checkout-p1", IdempotencyKey("course-checkout", "p1"))
	require.Equal(t, "scope", IdempotencyKey("scope"))
}

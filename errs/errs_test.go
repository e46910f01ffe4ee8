package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUniqueErrorsDeduplicatesByMessagePreservingOrder(t *testing.T) {
	e1 := errors.New("a")
	e2 := errors.New("b")
	e3 := errors.New("a") // same message, different value

	got := UniqueErrors([]error{e1, e2, e3})
	require.Len(t, got, 2)
	require.Equal(t, "a", got[0].Error())
	require.Equal(t, "b", got[1].Error())
}

func TestIsObjectLocked(t *testing.T) {
	require.True(t, IsObjectLocked(&ObjectLockedError{}))
	require.False(t, IsObjectLocked(errors.New("other")))
	require.False(t, IsObjectLocked(nil))
}

func TestPairwiseSyncFailedUnwraps(t *testing.T) {
	inner := errors.New("dial failed")
	wrapped := &PairwiseSyncFailed{Inner: inner}
	require.ErrorIs(t, wrapped, inner)
}

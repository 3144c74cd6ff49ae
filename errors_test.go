package lzblock

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStrings(t *testing.T) {
	require.Equal(t, "ErrTimeout", ErrTimeout.GoString())
	require.Equal(t, "ErrCrcMismatch", ErrCrcMismatch.GoString())
	require.Equal(t, "checksum verification failed", ErrCrcMismatch.Error())
	require.Equal(t, fmt.Sprintf("%#v", ErrOverflow), "ErrOverflow")
}

func TestErrorRecoverable(t *testing.T) {
	recoverable := map[Error]bool{
		ErrOverflow:     false,
		ErrInvalidSize:  false,
		ErrMemoryAccess: false,
		ErrTimeout:      true,
		ErrInvalidState: false,
		ErrStall:        true,
		ErrCrcMismatch:  false,
	}
	for err, want := range recoverable {
		require.Equal(t, want, err.Recoverable(), "%#v", err)
	}
}

func TestErrorWrapping(t *testing.T) {
	wrapped := fmt.Errorf("%w: chunk 3", ErrTimeout)
	require.ErrorIs(t, wrapped, ErrTimeout)
	require.NotErrorIs(t, wrapped, ErrStall)

	var kind Error
	require.True(t, errors.As(wrapped, &kind))
	require.Equal(t, ErrTimeout, kind)
}

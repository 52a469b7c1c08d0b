package ksvc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatsOpAndKind(t *testing.T) {
	err := &Error{Op: "create", Kind: KindBusy, Msg: "already created"}
	require.Contains(t, err.Error(), "create")
	require.Contains(t, err.Error(), "busy")
	require.Contains(t, err.Error(), "already created")
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &Error{Op: "map", Kind: KindOutOfMemory, Inner: inner}
	require.ErrorIs(t, err, inner)
}

func TestIsKind(t *testing.T) {
	err := &Error{Op: "map", Kind: KindInvalidArgument}
	require.True(t, IsKind(err, KindInvalidArgument))
	require.False(t, IsKind(err, KindBusy))
}

func TestErrnoMapping(t *testing.T) {
	require.Equal(t, KindBusy.Errno(), Errno(&Error{Kind: KindBusy}))
	require.Equal(t, KindInvalidArgument.Errno(), Errno(&Error{Kind: KindInvalidArgument}))
}

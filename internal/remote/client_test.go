package remote

import (
	"errors"
	"testing"

	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagStoreItems(t *testing.T) {
	add := imap.FormatFlagsOp(imap.FlagsOp(imap.AddFlags), true)
	assert.Equal(t, imap.StoreItem("+FLAGS.SILENT"), add)

	remove := imap.FormatFlagsOp(imap.FlagsOp(imap.RemoveFlags), true)
	assert.Equal(t, imap.StoreItem("-FLAGS.SILENT"), remove)
}

func TestConnectionErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp: i/o timeout")
	err := &ConnectionError{Host: "imap.example.com", Err: inner}

	require.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "imap.example.com")

	var connErr *ConnectionError
	assert.True(t, errors.As(error(err), &connErr))
}

func TestOpErrorUnwrap(t *testing.T) {
	inner := errors.New("NO move failed")
	err := &OpError{Op: "move", Err: inner}

	require.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "move")
}

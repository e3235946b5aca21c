package replcmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLooksIncomplete(t *testing.T) {
	require.True(t, looksIncomplete(errors.New("2:1: expected } to close block, found EOF")))
	require.False(t, looksIncomplete(errors.New("1:5: unknown operator +++")))
}

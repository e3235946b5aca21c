package embercmd_test

import (
	"testing"

	"github.com/mna/ember/internal/embercmd"
	"github.com/stretchr/testify/require"
)

func TestValidateUnknownCommand(t *testing.T) {
	var c embercmd.Cmd
	c.SetArgs([]string{"bogus"})
	require.Error(t, c.Validate())
}

func TestValidateNoCommand(t *testing.T) {
	var c embercmd.Cmd
	c.SetArgs(nil)
	require.Error(t, c.Validate())
}

func TestValidateRunRequiresExactlyOneFile(t *testing.T) {
	var c embercmd.Cmd
	c.SetArgs([]string{"run"})
	require.Error(t, c.Validate())

	c.SetArgs([]string{"run", "a.ember", "b.ember"})
	require.Error(t, c.Validate())

	c.SetArgs([]string{"run", "a.ember"})
	require.NoError(t, c.Validate())
}

func TestValidateReplNeedsNoArgs(t *testing.T) {
	var c embercmd.Cmd
	c.SetArgs([]string{"repl"})
	require.NoError(t, c.Validate())
}

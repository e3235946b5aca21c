package embercmd

import (
	"context"

	"github.com/mna/ember/internal/replcmd"
	"github.com/mna/ember/lang/vm"
	"github.com/mna/mainer"
)

// Repl starts an interactive read/eval/print loop on stdio.
func (c *Cmd) Repl(ctx context.Context, stdio mainer.Stdio, args []string) error {
	limits, err := ParseLimits()
	if err != nil {
		return err
	}

	th := vm.NewThread(newGlobals(stdio.Stdout))
	th.Stdout, th.Stderr, th.Stdin = stdio.Stdout, stdio.Stderr, stdio.Stdin
	th.MaxSteps = limits.MaxSteps
	th.MaxCallDepth = limits.MaxCallDepth

	replcmd.REPL(th)
	return nil
}

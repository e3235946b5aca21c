package embercmd

import (
	"context"
	"fmt"

	"github.com/mna/ember/lang/value"
	"github.com/mna/ember/lang/vm"
	"github.com/mna/mainer"
)

// Eval compiles and executes args[0] as a single expression, printing its
// value to stdout.
func (c *Cmd) Eval(ctx context.Context, stdio mainer.Stdio, args []string) error {
	limits, err := ParseLimits()
	if err != nil {
		return err
	}

	th := vm.NewThread(newGlobals(stdio.Stdout))
	th.Stdout, th.Stderr, th.Stdin = stdio.Stdout, stdio.Stderr, stdio.Stdin
	th.MaxSteps = limits.MaxSteps
	th.MaxCallDepth = limits.MaxCallDepth
	th.WithContext(ctx)

	v, err := th.Eval(args[0], nil)
	if err != nil {
		return fmt.Errorf("eval: %w", err)
	}
	fmt.Fprintln(stdio.Stdout, value.ToString(v))
	return nil
}

package embercmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/ember/lang/vm"
)

// Run compiles and executes the script file named by args[0].
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	limits, err := ParseLimits()
	if err != nil {
		return err
	}

	th := vm.NewThread(newGlobals(stdio.Stdout))
	th.Stdout, th.Stderr, th.Stdin = stdio.Stdout, stdio.Stderr, stdio.Stdin
	th.MaxSteps = limits.MaxSteps
	th.MaxCallDepth = limits.MaxCallDepth
	th.WithContext(ctx)

	if _, err := th.Run(string(source)); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return nil
}

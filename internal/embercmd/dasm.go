package embercmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/mainer"
)

// Dasm compiles the script file named by args[0] and prints its
// disassembled bytecode, for inspecting what the compiler produced without
// running it.
func (c *Cmd) Dasm(ctx context.Context, stdio mainer.Stdio, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("dasm: %w", err)
	}

	proto, err := compiler.Compile(string(source))
	if err != nil {
		return fmt.Errorf("dasm: %w", err)
	}
	fmt.Fprint(stdio.Stdout, compiler.Disassemble(proto))
	return nil
}

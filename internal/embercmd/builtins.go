package embercmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/mna/ember/lang/host"
	"github.com/mna/ember/lang/value"
)

// newGlobals builds a fresh root Environment with the small set of built-ins
// the CLI's own scripts rely on (print), the same role the teacher's
// mna-starlark-go example hosts fill with their own StringDict of globals:
// ember itself doesn't mandate any particular standard library (see
// SPEC_FULL's host-bridge scope), so the CLI registers its own via
// lang/host's NativeFunc wrappers rather than the VM providing them
// built-in.
func newGlobals(stdout io.Writer) *value.Environment {
	env := value.Root()
	env.Define("print", host.FuncVar("print", func(args []value.Value) (value.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = value.ToString(a)
		}
		fmt.Fprintln(stdout, strings.Join(parts, " "))
		return value.Nil, nil
	}))
	return env
}

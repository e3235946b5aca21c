// Package replcmd implements a read/eval/print loop for ember, modeled on
// the teacher lineage's own starlark REPL (mna-starlark-go's repl package):
// readline-style editing via chzyer/readline, Control-C interrupts a single
// in-flight evaluation rather than the whole process, and a line that fails
// to parse because it is incomplete (an unclosed block or call) is held and
// appended to until it parses or the user gives up.
package replcmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
	"github.com/mna/ember/lang/vm"
)

var interrupted = make(chan os.Signal, 1)

// REPL runs a read/eval/print loop on th until the user exits (Ctrl-D) or
// readline itself fails to initialize. One Environment is shared across
// every chunk the user enters, rooted at th.Globals, so a `var` or `func`
// declared on one line is still visible on the next — th.Run on its own
// can't provide that, since it always starts a fresh Environment per call
// (appropriate for running a whole file, wrong for a REPL session), so this
// package drives the compiler and th.Call directly instead.
func REPL(th *vm.Thread) {
	signal.Notify(interrupted, os.Interrupt)
	defer signal.Stop(interrupted)

	rl, err := readline.New(">>> ")
	if err != nil {
		PrintError(err)
		return
	}
	defer rl.Close()

	env := value.NewEnvironment(th.Globals)
	env.Define("_G", &value.GlobalTable{Root: th.Globals})

	for {
		if err := rep(th, env, rl); err != nil {
			if err == readline.ErrInterrupt {
				fmt.Println(err)
				continue
			}
			break
		}
	}
}

// rep reads one (possibly multi-line) chunk, evaluates it, and prints its
// result or error. It returns a non-nil error (possibly io.EOF or
// readline.ErrInterrupt) only when the REPL itself should stop.
func rep(th *vm.Thread, env *value.Environment, rl *readline.Instance) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-interrupted:
			cancel()
		case <-ctx.Done():
		}
	}()
	th.WithContext(ctx)

	var buf strings.Builder
	rl.SetPrompt(">>> ")
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == io.EOF && buf.Len() > 0 {
				// Abandon a dangling partial chunk on EOF rather than erroring.
				return io.EOF
			}
			return err
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
		source := buf.String()

		// Try it as a bare expression first, so `1 + 1` prints 2 instead of
		// needing an explicit `return` or `print`.
		if proto, err := compiler.CompileExpr(source); err == nil {
			v, runErr := th.Call(vm.MakeTopLevel(proto, env), nil)
			if runErr != nil {
				PrintError(runErr)
				return nil
			}
			if _, isNull := v.(value.Null); !isNull {
				fmt.Println(value.ToString(v))
			}
			return nil
		}

		proto, compileErr := compiler.Compile(source)
		if compileErr != nil {
			if looksIncomplete(compileErr) {
				rl.SetPrompt("... ")
				continue
			}
			PrintError(compileErr)
			return nil
		}
		if _, runErr := th.Call(vm.MakeTopLevel(proto, env), nil); runErr != nil {
			PrintError(runErr)
		}
		return nil
	}
}

// looksIncomplete reports whether err is the kind of compile error produced
// by a chunk that is syntactically valid so far but truncated mid-block (an
// unclosed '{', an argument list missing its ')'), in which case the REPL
// should read another line and retry rather than report the error. This is
// a heuristic on the compiler's own diagnostic text (it always names the
// unexpected token, and an EOF token is the tell), not a separate parser
// mode.
func looksIncomplete(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "eof")
}

// PrintError prints err to stderr.
func PrintError(err error) {
	fmt.Fprintln(os.Stderr, err)
}

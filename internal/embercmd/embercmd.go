// Package embercmd implements the ember command-line tool's flag parsing and
// command dispatch, built on github.com/mna/mainer exactly as the teacher's
// internal/maincmd drives cmd/nenuphar: a struct with `flag:"..."` tags is
// populated by mainer.Parser, and its exported methods matching
// func(context.Context, mainer.Stdio, []string) error become the CLI's
// subcommands, looked up by lowercased method name.
package embercmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/mna/mainer"
)

const binName = "ember"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<arg>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] <command> [<arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Embed-first bytecode scripting VM.

The <command> can be one of:
       run <file>                Compile and execute a script file.
       eval <expr>                Compile and execute a single expression,
                                 printing its value.
       repl                      Start an interactive read/eval/print loop.
       dasm <file>                Compile a script file and print its
                                 disassembled bytecode.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Environment variables (override per-run VM limits):
       EMBER_MAX_STEPS           Bytecode-instruction budget per Thread.
       EMBER_MAX_CALL_DEPTH      Call-stack depth limit per Thread.
`, binName)
)

// Limits holds the VM resource limits a host deployment may override via
// environment variables, the same struct-tag-driven config style
// mna/mainer's EnvVars option already applies to CLI flags, generalized
// here to a couple of settings that aren't flags (see SPEC_FULL's DOMAIN
// STACK section on caarlos0/env).
type Limits struct {
	MaxSteps     int `env:"EMBER_MAX_STEPS" envDefault:"0"`
	MaxCallDepth int `env:"EMBER_MAX_CALL_DEPTH" envDefault:"0"`
}

// ParseLimits reads Limits from the process environment.
func ParseLimits() (Limits, error) {
	var l Limits
	if err := env.Parse(&l); err != nil {
		return Limits{}, fmt.Errorf("parsing VM limit environment variables: %w", err)
	}
	return l, nil
}

// Cmd is ember's root CLI command, populated by mainer.Parser from argv.
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args  []string
	cmdFn func(context.Context, mainer.Stdio, []string) error
}

func (c *Cmd) SetArgs(args []string) { c.args = args }
func (c *Cmd) SetFlags(map[string]bool) {}

// Validate resolves the requested subcommand, erroring if none or an
// unknown one was given.
func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) == 0 {
		return errors.New("no command specified")
	}

	cmdName := c.args[0]
	commands := buildCmds(c)
	c.cmdFn = commands[cmdName]
	if c.cmdFn == nil {
		return fmt.Errorf("unknown command: %s", cmdName)
	}

	switch cmdName {
	case "run", "dasm":
		if len(c.args[1:]) != 1 {
			return fmt.Errorf("%s: exactly one file argument is required", cmdName)
		}
	case "eval":
		if len(c.args[1:]) != 1 {
			return fmt.Errorf("%s: exactly one expression argument is required", cmdName)
		}
	}
	return nil
}

// Main parses args and dispatches to the resolved subcommand, returning the
// process exit code.
func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{EnvVars: false, EnvPrefix: binName + "_"}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success
	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.args[1:]); err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
		return mainer.Failure
	}
	return mainer.Success
}

// buildCmds mirrors the teacher's reflection-based subcommand lookup: any
// exported method of v shaped func(context.Context, mainer.Stdio, []string)
// error becomes a subcommand named after its lowercased method name.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}
		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}

package vm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"

	"github.com/dolthub/swiss"
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
)

// compileCache memoizes Compile results by a hash of the source text, so a
// host that repeatedly re-runs the same snippet (a REPL line re-evaluated in
// a loop, a hot-reloaded script) only pays the lex/compile cost once. Keyed
// by content rather than by path since eval() has no path at all.
var compileCache = swiss.NewMap[string, *compiler.FunctionPrototype](64)

// evalCache mirrors compileCache but for compiler.CompileExpr results: the
// same source text compiles to different bytecode depending on whether it
// is run as a script (Compile) or evaluated as an expression (CompileExpr),
// so the two must not share a cache keyed only by content.
var evalCache = swiss.NewMap[string, *compiler.FunctionPrototype](64)

// CacheMetrics counts hits and misses against compileCache/evalCache, for a
// host that wants to expose compile-cache effectiveness (a REPL or script
// server re-running the same snippets repeatedly) as an observability
// metric, mirroring the teacher's own step/budget counters in spirit.
var CacheMetrics struct {
	CompileHits, CompileMisses atomic.Uint64
	EvalHits, EvalMisses       atomic.Uint64
}

// CacheStats returns a snapshot of CacheMetrics' current counters.
func CacheStats() (compileHits, compileMisses, evalHits, evalMisses uint64) {
	return CacheMetrics.CompileHits.Load(), CacheMetrics.CompileMisses.Load(),
		CacheMetrics.EvalHits.Load(), CacheMetrics.EvalMisses.Load()
}

func cacheKey(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}

// compileCached compiles source, reusing a prior compilation if this exact
// source text was already compiled by any thread.
func compileCached(source string) (*compiler.FunctionPrototype, error) {
	key := cacheKey(source)
	if proto, ok := compileCache.Get(key); ok {
		CacheMetrics.CompileHits.Add(1)
		return proto, nil
	}
	CacheMetrics.CompileMisses.Add(1)
	proto, err := compiler.Compile(source)
	if err != nil {
		return nil, err
	}
	compileCache.Put(key, proto)
	return proto, nil
}

// compileExprCached is compileCached's counterpart for compiler.CompileExpr.
func compileExprCached(source string) (*compiler.FunctionPrototype, error) {
	key := cacheKey(source)
	if proto, ok := evalCache.Get(key); ok {
		CacheMetrics.EvalHits.Add(1)
		return proto, nil
	}
	CacheMetrics.EvalMisses.Add(1)
	proto, err := compiler.CompileExpr(source)
	if err != nil {
		return nil, err
	}
	evalCache.Put(key, proto)
	return proto, nil
}

// Run compiles and executes source as a top-level script/module body: a
// fresh Environment parented at th.Globals backs its module-level `var`
// declarations, and `_G` is bound into that environment so the script can
// reach the root global table explicitly (spec.md §3/§6).
func (th *Thread) Run(source string) (value.Value, error) {
	proto, err := compileCached(source)
	if err != nil {
		return nil, err
	}
	return th.RunProto(proto)
}

// RunProto executes an already-compiled top-level prototype, as Run does.
// Used by hosts that persist
// compiled bytecode (spec.md §4.6's serialize/deserialize round trip) rather
// than recompiling from source every run.
func (th *Thread) RunProto(proto *compiler.FunctionPrototype) (value.Value, error) {
	env := value.NewEnvironment(th.Globals)
	env.Define("_G", &value.GlobalTable{Root: th.Globals})
	fn := MakeTopLevel(proto, env)
	v, err := th.callFunction(fn, nil)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	return v, nil
}

// Eval compiles source as a single expression's function body via
// compiler.CompileExpr, per spec.md §6 ("eval(expr, [env], …) compiles expr
// as a function body with a single return"), and executes it within env (or
// a fresh scope parented at th.Globals if env is nil), returning the
// expression's value. Intended for host-driven ephemeral evaluation (a
// debugger watch expression, a REPL expression line) rather than for
// running whole modules; unlike Run, it does not bind `_G` itself, since
// callers already have access to th.Globals directly.
func (th *Thread) Eval(source string, env *value.Environment) (value.Value, error) {
	proto, err := compileExprCached(source)
	if err != nil {
		return nil, err
	}
	if env == nil {
		env = value.NewEnvironment(th.Globals)
	}
	fn := MakeTopLevel(proto, env)
	v, err := th.callFunction(fn, nil)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	return v, nil
}

// Call invokes a script-level callable (a Function, BoundMethod, Class or
// host NativeFunc) with args, the same dispatch the Call opcode uses. Used
// by host code holding a callback Value obtained from a running script
// (spec.md §6's host-calls-script direction).
func (th *Thread) Call(callee value.Value, args []value.Value) (value.Value, error) {
	v, err := th.callValue(callee, args)
	if err != nil {
		return nil, asRuntimeError(err)
	}
	return v, nil
}

// DefaultLoad implements the spec's default import resolution (spec.md
// §4.6): resolve maps an import path to module source text, which is
// compiled and executed in a fresh environment parented at th.Globals; the
// result's exported bindings become the Module's. It is not installed
// automatically - a host wires it in explicitly via
// `th.Load = vm.DefaultLoad(resolve)` - and resolve decides where source
// comes from (disk, a virtual filesystem, a network loader, a denylist), so
// this package does no os-level I/O of its own.
func DefaultLoad(resolve func(path string) (string, error)) func(th *Thread, path string) (*value.Module, error) {
	return func(th *Thread, path string) (*value.Module, error) {
		if mod, ok := th.CachedModule(path); ok {
			return mod, nil
		}
		// Mark the module cache before the body runs so a cyclic import
		// observes a partially-populated Module instead of recursing forever
		// (spec.md §4.6's cyclic-import semantics): the importer sees whatever
		// the cycle's other half had defined by the time the cycle closed.
		env := value.NewEnvironment(th.Globals)
		mod := &value.Module{Path: path, Env: env}
		th.CacheModule(path, mod)

		source, err := resolve(path)
		if err != nil {
			return nil, throwf("import %q: %s", path, err.Error())
		}
		proto, err := compileCached(source)
		if err != nil {
			return nil, throwf("import %q: %s", path, err.Error())
		}
		mod.Exports = proto.Exports
		fn := MakeTopLevel(proto, env)
		if _, err := th.callFunction(fn, nil); err != nil {
			return nil, err
		}
		return mod, nil
	}
}

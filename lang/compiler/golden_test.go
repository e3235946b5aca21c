package compiler_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/ember/internal/filetest"
	"github.com/mna/ember/lang/compiler"
)

var updateGoldenTests = false

// TestDisassembleGolden compiles every .ember file in testdata/golden and
// diffs its Disassemble output against the matching .ember.want file,
// adapted from the teacher's own golden-file test harness
// (internal/filetest, originally exercised by lang/parser and lang/scanner's
// tests) rather than hand-writing the expected text inline as
// asm_test.go's other cases do.
func TestDisassembleGolden(t *testing.T) {
	dir := filepath.Join("testdata", "golden")
	for _, fi := range filetest.SourceFiles(t, dir, ".ember") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			source, err := os.ReadFile(filepath.Join(dir, fi.Name()))
			if err != nil {
				t.Fatal(err)
			}
			proto, err := compiler.Compile(string(source))
			if err != nil {
				t.Fatal(err)
			}
			out := compiler.Disassemble(proto)
			filetest.DiffOutput(t, fi, out, dir, &updateGoldenTests)
		})
	}
}

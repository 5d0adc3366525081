// Package flattest is a small end-to-end test harness for compiling FIDL
// source text directly to an *ir.Root, modeled on fidlgentest's
// EndToEndTest (tools/fidl/lib/fidlgentest/endtoendtest_test.go): tests
// write FIDL as a Go string literal, call Single/Multiple, and assert on
// the resulting IR rather than wiring source.File/raw.Parser/flat.Library
// by hand in every test.
package flattest

import (
	"strconv"
	"testing"

	"go.fuchsia.dev/fidlcore/attr"
	"go.fuchsia.dev/fidlcore/flat"
	"go.fuchsia.dev/fidlcore/ir"
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/reporter"
	"go.fuchsia.dev/fidlcore/source"
)

// EndToEndTest compiles one library, optionally against a set of already-
// compiled dependency libraries, and fails t if compilation reports any
// error. T is exported the way fidlgentest's own EndToEndTest embeds
// *testing.T, so a zero-value literal with just T set is legal.
type EndToEndTest struct {
	T *testing.T

	deps        []string
	experiments flat.Experiments
}

// WithDependency compiles src as an importable dependency library before
// the real subject under test, the way TestErrorSyntaxOfImportedComposedProtocol
// builds a `parent` library before compiling `child` against it.
func (e EndToEndTest) WithDependency(src string) EndToEndTest {
	e.deps = append(append([]string{}, e.deps...), src)
	return e
}

// WithExperiments enables the named experimental flags for the subject
// library's compile (spec's CompileOptions/Experiments gate).
func (e EndToEndTest) WithExperiments(names ...string) EndToEndTest {
	e.experiments = flat.NewExperiments(names...)
	return e
}

// Single compiles one library consisting of a single file.
func (e EndToEndTest) Single(src string) *ir.Root {
	e.T.Helper()
	return e.Multiple([]string{src})
}

// Multiple compiles one library from several files (spec §4.9 phase 1:
// "a library may span several files; they share one name and decl
// scope"), after first compiling any WithDependency libraries.
func (e EndToEndTest) Multiple(srcs []string) *ir.Root {
	e.T.Helper()

	ls := flat.NewLibraries()
	ts := flat.NewTypespace()
	attrs := attr.NewTable()

	for i, depSrc := range e.deps {
		dep, rep := compileLibrary(ts, attrs, []string{depSrc}, "dep")
		if rep.HasErrors() {
			e.T.Fatalf("dependency %d failed to compile: %v", i, rep.AsError())
		}
		if err := ls.Insert(dep); err != nil {
			e.T.Fatalf("dependency %d: %v", i, err)
		}
	}

	lib, rep := compileLibraryWithOptions(ts, attrs, srcs, "subject", ls, flat.CompileOptions{Experiments: e.experiments})
	if rep.HasErrors() {
		e.T.Fatalf("compile failed: %v", rep.AsError())
	}
	return ir.Build(lib)
}

// ExpectFail compiles src and returns the Reporter's errors without ever
// failing T, for tests that assert on a specific diagnostic message
// rather than a successful compile (spec §8's worked error scenarios).
func (e EndToEndTest) ExpectFail(src string) []reporter.Diagnostic {
	e.T.Helper()
	ls := flat.NewLibraries()
	ts := flat.NewTypespace()
	attrs := attr.NewTable()
	for i, depSrc := range e.deps {
		dep, rep := compileLibrary(ts, attrs, []string{depSrc}, "dep")
		if rep.HasErrors() {
			e.T.Fatalf("dependency %d failed to compile: %v", i, rep.AsError())
		}
		if err := ls.Insert(dep); err != nil {
			e.T.Fatalf("dependency %d: %v", i, err)
		}
	}
	_, rep := compileLibraryWithOptions(ts, attrs, []string{src}, "subject", ls, flat.CompileOptions{Experiments: e.experiments})
	if !rep.HasErrors() {
		e.T.Fatalf("expected compile to fail, but it succeeded")
	}
	return rep.Errors()
}

// compileLibrary parses srcs into a fresh Library and compiles it without
// any dependency lookups beyond what is already registered in a fresh
// *flat.Libraries (used for WithDependency libraries, which never import
// one another in these tests).
func compileLibrary(ts *flat.Typespace, attrs *attr.Table, srcs []string, nameHint string) (*flat.Library, *reporter.Reporter) {
	return compileLibraryWithOptions(ts, attrs, srcs, nameHint, flat.NewLibraries(), flat.CompileOptions{})
}

func compileLibraryWithOptions(ts *flat.Typespace, attrs *attr.Table, srcs []string, nameHint string, ls *flat.Libraries, opts flat.CompileOptions) (*flat.Library, *reporter.Reporter) {
	rep := reporter.New()
	lib := flat.NewLibrary(ts, attrs)
	lib.SetOptions(opts)
	for i, src := range srcs {
		file := source.NewFile(fileName(nameHint, i), []byte(src))
		p := raw.NewParser(file, rep)
		f := p.ParseFile()
		if f == nil {
			continue
		}
		lib.AddFile(rep, f)
	}
	lib.Compile(rep, ls)
	return lib, rep
}

func fileName(hint string, i int) string {
	if i == 0 {
		return hint + ".fidl"
	}
	return hint + "_" + strconv.Itoa(i) + ".fidl"
}

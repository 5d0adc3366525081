package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/google/subcommands"
	"github.com/spf13/pflag"

	"go.fuchsia.dev/fidlcore/attr"
	"go.fuchsia.dev/fidlcore/flat"
	"go.fuchsia.dev/fidlcore/ir"
	"go.fuchsia.dev/fidlcore/raw"
	"go.fuchsia.dev/fidlcore/reporter"
	"go.fuchsia.dev/fidlcore/source"
)

// compileCmd implements subcommands.Command for `fidlc compile`, the only
// real action this driver performs. Its own flag definitions live on a
// pflag.FlagSet built in Execute, so the command gets GNU-style long
// flags (--out, repeatable --dep and --experiment) rather than stdlib
// flag's single-dash spelling; SetFlags only has to satisfy the
// interface subcommands requires.
type compileCmd struct {
	out         string
	deps        []string
	experiments []string
}

func (*compileCmd) Name() string { return "compile" }

func (*compileCmd) Synopsis() string {
	return "compile a FIDL library and print its IR as JSON"
}

func (*compileCmd) Usage() string {
	return "compile [--out=path] [--dep=library.fidl ...] [--experiment=name ...] file.fidl [file2.fidl ...]\n"
}

func (c *compileCmd) SetFlags(f *flag.FlagSet) {}

func (c *compileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	pfs := pflag.NewFlagSet(c.Name(), pflag.ContinueOnError)
	pfs.StringVar(&c.out, "out", "", "path to write the IR JSON to (default: stdout)")
	pfs.StringArrayVar(&c.deps, "dep", nil, "a dependency library's source file, compiled before the subject library (repeatable)")
	pfs.StringArrayVar(&c.experiments, "experiment", nil, "name of an experimental flag to enable, e.g. flexible_bits_and_enums (repeatable)")
	if err := pfs.Parse(f.Args()); err != nil {
		glog.Errorf("parsing flags: %v", err)
		return subcommands.ExitUsageError
	}

	files := pfs.Args()
	if len(files) == 0 {
		glog.Error("compile requires at least one FIDL source file")
		return subcommands.ExitUsageError
	}

	ls := flat.NewLibraries()
	ts := flat.NewTypespace()
	attrs := attr.NewTable()
	opts := flat.CompileOptions{Experiments: flat.NewExperiments(c.experiments...)}

	for _, depFile := range c.deps {
		glog.V(1).Infof("compiling dependency %s", depFile)
		dep, rep, err := compileFromFiles(ts, attrs, ls, []string{depFile}, opts)
		if err != nil {
			glog.Errorf("reading %s: %v", depFile, err)
			return subcommands.ExitFailure
		}
		if rep.HasErrors() {
			fmt.Fprintln(os.Stderr, rep.AsError())
			return subcommands.ExitFailure
		}
		if err := ls.Insert(dep); err != nil {
			glog.Errorf("registering dependency %s: %v", depFile, err)
			return subcommands.ExitFailure
		}
	}

	lib, rep, err := compileFromFiles(ts, attrs, ls, files, opts)
	if err != nil {
		glog.Errorf("reading source: %v", err)
		return subcommands.ExitFailure
	}
	if rep.HasErrors() {
		fmt.Fprintln(os.Stderr, rep.AsError())
		return subcommands.ExitFailure
	}
	for _, w := range rep.Warnings() {
		fmt.Fprintln(os.Stderr, w)
	}

	root := ir.Build(lib)
	out, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		glog.Errorf("marshaling IR: %v", err)
		return subcommands.ExitFailure
	}

	if c.out == "" {
		os.Stdout.Write(out)
		fmt.Println()
		return subcommands.ExitSuccess
	}
	if err := os.WriteFile(c.out, out, 0644); err != nil {
		glog.Errorf("writing %s: %v", c.out, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// compileFromFiles reads, parses, and compiles one library from the
// given source paths against already-registered dependencies in ls.
func compileFromFiles(ts *flat.Typespace, attrs *attr.Table, ls *flat.Libraries, paths []string, opts flat.CompileOptions) (*flat.Library, *reporter.Reporter, error) {
	rep := reporter.New()
	lib := flat.NewLibrary(ts, attrs)
	lib.SetOptions(opts)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}
		file := source.NewFile(path, data)
		p := raw.NewParser(file, rep)
		f := p.ParseFile()
		if f == nil {
			continue
		}
		lib.AddFile(rep, f)
	}
	lib.Compile(rep, ls)
	return lib, rep, nil
}

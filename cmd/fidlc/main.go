// Command fidlc is a thin driver over the go.fuchsia.dev/fidlcore
// compiler core: it parses one library's source files, compiles them,
// and prints the resulting IR as JSON. It owns no compiler semantics of
// its own — every decision about what is or isn't valid FIDL lives in
// the flat package. Grounded on dev_finder's subcommands.Register/
// Execute wiring (garnet/bin/dev_finder/main.go).
package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/google/subcommands"
)

func main() {
	defer glog.Flush()

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&compileCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

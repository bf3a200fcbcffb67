// finanzasctl runs ledger maintenance tasks against the configured backend.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	for _, c := range commands {
		commander.Register(c, "ledger")
	}
	commander.Register(&backfillCmd{}, "sheets")
	commander.Register(&tokenCmd{}, "auth")
	commander.Register(&schemaCmd{}, "storage")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

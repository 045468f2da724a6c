// Command tsq compiles type-safe query documents into predicate format
// strings and runs them against a local SQLite object store.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tsq/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands report their own errors; only errors raised before a
		// command ran (bad flags, config) still need printing.
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

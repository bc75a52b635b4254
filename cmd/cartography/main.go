// Command cartography records and inspects per-example training dynamics.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cartography/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

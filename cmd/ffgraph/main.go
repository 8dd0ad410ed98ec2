// Command ffgraph hosts FFgraph editing sessions and inspects documents,
// option catalogues and the session database.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ffgraph/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

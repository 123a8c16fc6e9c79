// Command flexi compiles, validates and runs ability graphs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/flexi/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

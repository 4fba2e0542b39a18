// Command ruler compiles geometry constraint problems into construction programs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/ruler/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Exit errors were already reported by the command's formatter.
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		// Anything else is a usage error raised by cobra.
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
}

// Command turtle grades, replays and serves turtle drawing programs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/turtle/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// usage errors are not printed by the commands themselves
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}

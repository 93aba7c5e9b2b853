// Command releasebridge records a deployment on the tasks referenced by the
// pull requests in a commit range.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/drewfead/releasebridge/internal/logging"
)

// Version is set at build time
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	return execute(newRootCmd(), args)
}

// execute runs cmd and maps the outcome to an exit code: 0 on success,
// 1 on error, 2 on a recovered panic.
func execute(cmd *cobra.Command, args []string) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			logging.CapturePanic(r, "component", "main")
			fmt.Fprintf(os.Stderr, "FATAL: unrecovered panic: %v\n", r)
			exitCode = 2
		}
	}()

	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

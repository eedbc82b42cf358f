// Command nmma-admin is the operator CLI for the NMMA analysis service.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1) //nolint:forbidigo // CLI entrypoint should exit with non-zero status on failure.
	}
}

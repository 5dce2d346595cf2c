package main

import (
	"fmt"
	"os"

	"github.com/aescanero/dago-rulekit/internal/cli"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

func main() {
	root := cli.NewRootCommand(fmt.Sprintf("%s (built %s)", Version, BuildTime))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/doeshing/pdqa/internal/infrastructure/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	opts := cli.Options{Verbose: isVerbose()}

	root, container, err := cli.NewRootCmd(ctx, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer container.Close()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// isVerbose is decided before cobra parses flags because the logger is
// built with the container.
func isVerbose() bool {
	for _, arg := range os.Args[1:] {
		if arg == "--" {
			break
		}
		if arg == "--verbose" || arg == "-v" {
			return true
		}
	}
	return strings.EqualFold(os.Getenv("PDQA_DEBUG"), "1") || strings.EqualFold(os.Getenv("PDQA_DEBUG"), "true")
}

// Package main is the single-binary entrypoint for TaskEval.
package main

import "github.com/taskeval-network/taskeval/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}

// Package main is the single-binary entrypoint for the irrigation control
// loop: one process, the Supervisor scan loop plus its HTTP façade.
package main

import "github.com/greenhouse-io/irrigator/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}

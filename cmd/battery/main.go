// Command battery prints the state of the machine's batteries.
package main

import "github.com/cptspacemanspiff/battery-monitor/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}

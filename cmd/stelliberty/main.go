// Command stelliberty is the unprivileged control plane binary (spec §4):
// it parses a subscription, applies overrides and runtime parameters, and
// supervises the Core process.
package main

import "github.com/stelliberty/stelliberty/cmd/stelliberty/cmd"

func main() {
	cmd.Execute()
}

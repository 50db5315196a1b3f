// Command stelliberty-service is the privileged Service binary (spec
// §4.C): it installs itself with the platform service manager and, once
// running, owns Core lifecycle and privileged OS operations on behalf
// of the unprivileged control plane.
package main

import "github.com/stelliberty/stelliberty/cmd/stelliberty-service/cmd"

func main() {
	cmd.Execute()
}

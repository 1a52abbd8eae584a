// Package main provides labelctl, the command line front end of the label
// service. It prints through the same pipeline as the HTTP server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(newCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}

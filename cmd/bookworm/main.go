// Command bookworm administers a bookworm data directory: provisioning
// accounts, minting access tokens, inspecting the catalog and running
// maintenance while the server is stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// SPDX-License-Identifier: EPL-2.0

// Command audplay plays, streams and renders sound cues through the audplay
// engine.
package main

import (
	"context"
	"os"
)

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

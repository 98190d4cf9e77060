// Command notes is a terminal client for notes kept in the encrypted vault.
// Notes are edited locally and saved to the vault a moment after typing
// stops.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/atinyakov/SecureNotes/internal/client/ui"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error.Sprint("Error: "+err.Error()))
		os.Exit(1)
	}
}

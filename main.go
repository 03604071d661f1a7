package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/erik777/runkod-cli/app"
)

// main builds the CLI around the application logic and runs the command given on
// the command line. An interrupt cancels the running command.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := BuildCLI(app.New())

	if err := cmd.Run(ctx, os.Args); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// sockcat - a netcat-style TCP/UDP tool built on a cancellable session engine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sockcat/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "sockcat: %v\n", err)
		os.Exit(1)
	}
}

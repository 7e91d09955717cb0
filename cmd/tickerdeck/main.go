package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/five82/tickerdeck/internal/api"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd(&cli{in: os.Stdin, out: os.Stdout, errOut: os.Stderr, version: version})
	if err := root.ExecuteContext(ctx); err != nil {
		// The request pipeline has already printed backend failures.
		if !api.Notified(err) {
			fmt.Fprintf(os.Stderr, "tickerdeck: %v\n", err)
		}
		return 1
	}
	return 0
}

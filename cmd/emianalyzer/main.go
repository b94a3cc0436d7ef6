package main

import (
	"context"
	"os"

	"emianalyzer/internal/cli"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

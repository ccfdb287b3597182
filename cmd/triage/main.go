package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/doeshing/triage-go/internal/infrastructure/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, session := cli.NewRootCmd(cli.Options{Verbose: isVerbose()})

	err := root.ExecuteContext(ctx)
	_ = session.Close()
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", session.Describe(err))
		os.Exit(1)
	}
}

func isVerbose() bool {
	return strings.EqualFold(os.Getenv("TRIAGE_DEBUG"), "1") || strings.EqualFold(os.Getenv("TRIAGE_DEBUG"), "true")
}

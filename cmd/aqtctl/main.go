package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	aqtctlcmd "github.com/aqt/aqt-connector/pkg/aqtctl/cmd"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := aqtctlcmd.Execute(ctx, aqtctlcmd.DefaultConfig(), args); err != nil {
		return 1
	}
	return 0
}

// Command eddy serves, renders or live-applies Eddy edit sessions.
// Usage:
//
//	eddy [-config eddy.yaml] [-addr :8080]
//	eddy -mode render -session <id> [-url https://example.com/page] [-out page.html]
//	eddy -mode live -session <id> [-url https://example.com/page]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/eddy/internal/app"
	"github.com/raysh454/eddy/internal/cli"
	"github.com/raysh454/eddy/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "eddy:", err)
		os.Exit(1)
	}
}

func run(argv []string) error {
	args, err := cli.ParseArgs(argv)
	if err != nil {
		return err
	}
	cfg, err := app.LoadConfig(args.ConfigPath)
	if err != nil {
		return err
	}

	// stdout may carry rendered HTML
	logger := logging.NewWriterLogger("eddy", os.Stderr)

	a, err := app.NewApplication(cfg, args, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := a.Run(ctx, os.Stdout)
	if err := a.Shutdown(context.Background()); err != nil {
		logger.Warn("shutdown", logging.Field{Key: "error", Value: err.Error()})
	}
	return runErr
}

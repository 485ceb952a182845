// cmd/cellarscrapexter/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/valpere/CellarScrapexter/internal/errors"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &application{}
	root := newRootCommand(app)

	if err := root.ExecuteContext(ctx); err != nil {
		errorService := errors.NewService().WithVerbose(app.verbose)
		fmt.Fprint(os.Stderr, errorService.FormatErrorForCLI(err))
		stop()
		os.Exit(errorService.GetExitCode(err))
	}
}

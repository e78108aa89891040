package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/abrezinsky/motsvote/internal/app"
	"github.com/abrezinsky/motsvote/internal/config"
	"github.com/abrezinsky/motsvote/internal/logger"
	"github.com/abrezinsky/motsvote/web"
)

// ANSI escape codes
const (
	reset  = "\033[0m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
	bold   = "\033[1m"
)

var (
	version = "dev"
)

// showBanner prints the startup box with the URLs managers and admins use
func showBanner(votingURL string) {
	const width = 62
	border := strings.Repeat("═", width)
	lines := []string{
		"",
		"   Manager of the Season voting",
		"",
		"   Vote:  " + votingURL + "/",
		"   Admin: " + votingURL + "/admin",
		"",
	}

	fmt.Printf("\n  %s╔%s╗%s\n", cyan, border, reset)
	for _, line := range lines {
		pad := width - len([]rune(line))
		if pad < 0 {
			pad = 0
		}
		fmt.Printf("  %s║%s%s%s%s%s║%s\n", cyan, bold, yellow, line, strings.Repeat(" ", pad), cyan, reset)
	}
	fmt.Printf("  %s╚%s╝%s\n\n", cyan, border, reset)
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load("motsvote", os.Args[1:], os.Stderr)
	switch {
	case errors.Is(err, config.ErrVersionRequested):
		fmt.Printf("motsvote %s\n", version)
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case err != nil:
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 2
	}

	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, appLog, web.GetTemplatesFS(), web.GetStaticFS())
	if err != nil {
		appLog.Error("Failed to initialize application", "error", err)
		return 1
	}

	if logger.ParseFormat(cfg.LogFormat) == logger.FormatText {
		showBanner(a.BaseURL())
	}

	if err := a.Run(ctx); err != nil {
		appLog.Error("Server stopped", "error", err)
		return 1
	}
	appLog.Info("Server stopped")
	return 0
}

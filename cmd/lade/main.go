package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"

	"github.com/systmms/lade/cmd/lade/commands"
	"github.com/systmms/lade/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	code := run()
	memguard.Purge()
	os.Exit(code)
}

func run() int {
	cfg := &config.Config{}
	rootCmd := commands.NewRootCommand(cfg, commands.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return commands.ReportError(os.Stderr, err)
	}
	return 0
}

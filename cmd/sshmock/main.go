package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sshmock/cmd/sshmock/internal/cmd"
	"sshmock/internal/common/logger"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg, err := logger.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()
	ctx = logger.WithLogger(ctx, lg)

	c := &cmd.Cmd{}
	appRoot := &cobra.Command{
		Use:               "sshmock [flags]",
		Short:             "Programmable SSH/SFTP test server",
		PersistentPreRunE: c.PreRunE,
		RunE:              c.Run,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	if err := c.RegisterFlags(appRoot.Flags()); err != nil {
		lg.Errorf("Failed to register flags: %v", err)
		os.Exit(1)
	}

	if err := appRoot.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

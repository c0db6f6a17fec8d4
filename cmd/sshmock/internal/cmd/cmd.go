package cmd

import (
	"context"
	"fmt"

	"sshmock/internal/common/constants"
	"sshmock/internal/common/logger"
	"sshmock/internal/common/validators"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type Cmd struct {
	Host          string
	Port          int
	PublicKeyAuth bool
	Debug         bool
}

func (c *Cmd) RegisterFlags(fs *pflag.FlagSet) error {
	fs.StringVar(&c.Host, "host", constants.DefaultHost, "listen host")
	fs.IntVarP(&c.Port, "port", "p", constants.DefaultPort, "listen port (0 picks a free port)")
	fs.BoolVarP(&c.PublicKeyAuth, "pubkey", "k", false, "accept any public key for authentication")
	fs.BoolVar(&c.Debug, "debug", false, "enable debug logging")

	return nil
}

func (c *Cmd) PreRunE(cmd *cobra.Command, args []string) error {
	if c.Debug {
		logger.SetDebug()
	}

	return c.ValidateFlags(cmd.Context())
}

func (c *Cmd) ValidateFlags(ctx context.Context) error {
	if !validators.ValidatePort(c.Port) {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if !validators.ValidateHost(c.Host) {
		return fmt.Errorf("invalid host: %s", c.Host)
	}

	return nil
}

package cmd

import (
	"fmt"
	"sort"

	"sshmock/internal/common/logger"
	"sshmock/internal/common/pprint"
	"sshmock/internal/server"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (c *Cmd) Run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	lg := logger.FromContext(ctx)

	cfg := &server.Config{
		Host:          c.Host,
		Port:          c.Port,
		PublicKeyAuth: c.PublicKeyAuth,
	}
	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		lg.Errorf("Failed to initialize server: %v", err)
		return errors.Wrap(err, "failed to initialize server")
	}

	fmt.Println(pprint.GetBanner())
	if c.Debug {
		printConfig(cfg)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx) })
	return g.Wait()
}

// printConfig dumps the scripted tables the server was started with.
func printConfig(cfg *server.Config) {
	var commandRows [][]string
	for command, response := range cfg.Responses {
		commandRows = append(commandRows, []string{command, response.Stdout, fmt.Sprint(response.Status)})
	}
	sort.Slice(commandRows, func(i, j int) bool { return commandRows[i][0] < commandRows[j][0] })
	fmt.Println(pprint.Table([]string{"Command", "Stdout", "Status"}, commandRows))

	var userRows [][]string
	for username := range cfg.Passwords {
		userRows = append(userRows, []string{username})
	}
	sort.Slice(userRows, func(i, j int) bool { return userRows[i][0] < userRows[j][0] })
	fmt.Println(pprint.Table([]string{"User"}, userRows))

	var fileRows [][]string
	for path, node := range cfg.Files {
		kind := "file"
		if node.Dir {
			kind = "folder"
		}
		fileRows = append(fileRows, []string{path, kind})
	}
	sort.Slice(fileRows, func(i, j int) bool { return fileRows[i][0] < fileRows[j][0] })
	fmt.Println(pprint.Table([]string{"Path", "Type"}, fileRows))
}

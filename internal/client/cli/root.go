package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/dmitrijs2005/confessions/internal/client/config"
	"github.com/spf13/cobra"
)

type app struct {
	open Opener

	configPath string
	serverAddr string
	dbPath     string
	retries    uint64

	svc   Service
	close func() error
}

// NewRootCmd builds the command tree. open is called once per invocation,
// after flags are parsed.
func NewRootCmd(open Opener) *cobra.Command {
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "confess",
		Short:         "Post and read anonymous confessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.close == nil {
				return nil
			}
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "path to JSON config file")
	pf.StringVarP(&a.serverAddr, "server", "a", "", "server address host:port")
	pf.StringVar(&a.dbPath, "db", "", "path to the local database")
	pf.Uint64Var(&a.retries, "retries", 0, "retries when the server is unavailable")

	root.AddCommand(
		newIdentifyCmd(a),
		newSubmitCmd(a),
		newFeedCmd(a),
		newViewCmd(a),
		newStatusCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.ServerEndpointAddr = a.serverAddr
	}
	if flags.Changed("db") {
		cfg.DatabasePath = a.dbPath
	}
	if flags.Changed("retries") {
		cfg.RetryAttempts = a.retries
	}

	svc, closer, err := a.open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	a.svc, a.close = svc, closer
	return nil
}

// Execute runs root with args and returns the process exit code. Errors
// are printed to stderr in a user-facing form.
func Execute(ctx context.Context, root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "Error:", describeError(err))
		return 1
	}
	return 0
}

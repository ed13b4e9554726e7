// Package cli implements the deliveryhub command-line tool.
package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type options struct {
	server string
	token  string
}

// NewRootCommand builds the command tree writing to out
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "deliveryhub",
		Short: "Manage Delivery Hub sources, destinations and the database schema",
		Long: `deliveryhub talks to a Delivery Hub server over HTTP and can run the
schema migrations directly against its database.

The server address comes from --server or DELIVERYHUB_API; the bearer token
from --token, DELIVERYHUB_TOKEN or the file written by "deliveryhub login".`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("DELIVERYHUB_API", defaultServer), "Delivery Hub server URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("DELIVERYHUB_TOKEN"), "bearer token")

	root.AddCommand(
		newMigrateCommand(),
		newValidateCommand(),
		newLoginCommand(opts),
		newListCommand(opts, "sources"),
		newListCommand(opts, "destinations"),
	)
	return root
}

// Execute runs the CLI against os.Args
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return NewRootCommand(os.Stdout).ExecuteContext(ctx)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func tokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".deliveryhub", "token")
	}
	return filepath.Join(home, ".deliveryhub", "token")
}

// bearer returns the explicit token or the one saved by login
func (o *options) bearer() string {
	if o.token != "" {
		return o.token
	}
	data, err := os.ReadFile(tokenFile())
	if err != nil {
		return ""
	}
	return string(data)
}

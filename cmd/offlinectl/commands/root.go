// Package commands implements the offlinectl command tree.
package commands

import (
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/sw"
	"inspectra.app/offline-gateway/cmd/offlinectl/cmdutil"
	"inspectra.app/offline-gateway/cmd/offlinectl/output"
	"inspectra.app/offline-gateway/config"
)

const defaultServer = "http://localhost:8080"

type rootOptions struct {
	server      string
	format      string
	adminSecret string
	scope       string
	out         io.Writer
}

func (o *rootOptions) client() *cmdutil.Client {
	return cmdutil.NewClient(o.server, []byte(o.adminSecret))
}

// scopedClient acts as a page of the browser session o.scope.
func (o *rootOptions) scopedClient() (*cmdutil.Client, error) {
	if o.scope == "" {
		return nil, errors.New("a client scope is required: pass --scope or set OFFLINECTL_SCOPE")
	}
	return o.client().WithCookie(&http.Cookie{Name: sw.ClientScopeCookie, Value: o.scope}), nil
}

func (o *rootOptions) printer() (*output.Printer, error) {
	format, err := output.ParseFormat(o.format)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(o.out, format), nil
}

// NewRootCmd builds a fresh command tree writing results to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &rootOptions{out: out}

	rootCmd := &cobra.Command{
		Use:   "offlinectl",
		Short: "Inspect and operate an offline gateway",
		Long: `offlinectl talks to a running offline gateway over HTTP.

Use it to check which worker version controls the pages, list or drop
caches, and register background syncs.`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	server := os.Getenv("OFFLINECTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringVar(&opts.server, "server", server, "Gateway URL")
	rootCmd.PersistentFlags().StringVarP(&opts.format, "output", "o", string(output.FormatTable), "Output format (table|json)")
	rootCmd.PersistentFlags().StringVar(&opts.adminSecret, "admin-secret", os.Getenv("ADMIN_JWT_SECRET"), "Secret used to sign admin tokens")

	rootCmd.AddCommand(
		newStatusCmd(opts),
		newCachesCmd(opts),
		newSyncCmd(opts),
		newSkipWaitingCmd(opts),
	)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	return rootCmd
}

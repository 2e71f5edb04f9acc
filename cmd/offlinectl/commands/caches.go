package commands

import (
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
	"inspectra.app/offline-gateway/app/infrastructure/cache"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/sw"
	"inspectra.app/offline-gateway/cmd/offlinectl/output"
)

type cacheList []cache.CacheSummary

func (l cacheList) Headers() []string {
	return []string{"NAME", "ENTRIES"}
}

func (l cacheList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		rows = append(rows, []string{c.Name, strconv.Itoa(c.Entries)})
	}
	return rows
}

func newCachesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "caches",
		Short: "Manage the gateway's named caches",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List caches with their entry counts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				printer, err := opts.printer()
				if err != nil {
					return err
				}
				var resp responses.ListResponse[cache.CacheSummary]
				if err := opts.client().AdminGet(cmd.Context(), "/sw/caches", &resp); err != nil {
					return err
				}
				if printer.Format() == output.FormatJSON {
					return printer.Print(resp.Results)
				}
				return printer.Print(cacheList(resp.Results))
			},
		},
		&cobra.Command{
			Use:   "delete <name>",
			Short: "Delete a cache and everything in it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				printer, err := opts.printer()
				if err != nil {
					return err
				}
				var resp sw.DeleteCacheResponse
				if err := opts.client().AdminDelete(cmd.Context(), "/sw/caches/"+url.PathEscape(args[0]), &resp); err != nil {
					return err
				}
				if printer.Format() == output.FormatJSON {
					return printer.Print(resp)
				}
				printer.Success("Cache %s deleted", resp.Name)
				return nil
			},
		},
	)
	return cmd
}

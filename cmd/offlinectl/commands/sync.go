package commands

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"inspectra.app/offline-gateway/app/domain/backgroundsync"
	"inspectra.app/offline-gateway/app/domain/query"
	"inspectra.app/offline-gateway/app/interfaces/http/responses"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/sw"
	"inspectra.app/offline-gateway/cmd/offlinectl/output"
)

type registrationList []*backgroundsync.Registration

func (l registrationList) Headers() []string {
	return []string{"ID", "TAG", "STATE", "ATTEMPTS", "NEXT ATTEMPT", "LAST ERROR"}
}

func (l registrationList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		next := "-"
		if r.State == backgroundsync.StatePending && !r.NextAttemptAt.IsZero() {
			next = r.NextAttemptAt.UTC().Format(time.RFC3339)
		}
		lastErr := r.LastError
		if lastErr == "" {
			lastErr = "-"
		}
		rows = append(rows, []string{
			strconv.FormatUint(uint64(r.ID), 10),
			r.Tag,
			string(r.State),
			strconv.Itoa(r.Attempts),
			next,
			lastErr,
		})
	}
	return rows
}

type attemptList []*backgroundsync.Attempt

func (l attemptList) Headers() []string {
	return []string{"#", "OUTCOME", "LAST CHANCE", "STARTED", "FINISHED", "ERROR"}
}

func (l attemptList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, a := range l {
		rows = append(rows, []string{
			strconv.Itoa(a.Number),
			string(a.Outcome),
			strconv.FormatBool(a.LastChance),
			a.StartedAt.UTC().Format(time.RFC3339),
			a.FinishedAt.UTC().Format(time.RFC3339),
			a.Error,
		})
	}
	return rows
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Register and inspect background syncs",
		Long: `Background syncs belong to a browser session. Pass the session's
offline_scope cookie value with --scope; only pages of that session are
asked to replay their queue.`,
	}
	cmd.PersistentFlags().StringVar(&opts.scope, "scope", os.Getenv("OFFLINECTL_SCOPE"), "Client scope (offline_scope cookie) of the browser session")
	cmd.AddCommand(
		&cobra.Command{
			Use:   "register <tag>",
			Short: "Register a background sync and fire it now",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				printer, err := opts.printer()
				if err != nil {
					return err
				}
				client, err := opts.scopedClient()
				if err != nil {
					return err
				}
				var resp responses.GeneralResponse[*backgroundsync.Registration]
				err = client.Post(cmd.Context(), "/sw/sync", sw.RegisterSyncRequest{Tag: args[0]}, &resp)
				if err != nil {
					return err
				}
				if printer.Format() == output.FormatJSON {
					return printer.Print(resp.Result)
				}
				return printer.Print(registrationList{resp.Result})
			},
		},
		newSyncListCmd(opts),
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a registration and its attempts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := strconv.ParseUint(args[0], 10, 64); err != nil {
					return fmt.Errorf("invalid sync id %q", args[0])
				}
				printer, err := opts.printer()
				if err != nil {
					return err
				}
				client, err := opts.scopedClient()
				if err != nil {
					return err
				}
				var resp responses.GeneralResponse[sw.SyncDetailResponse]
				if err := client.Get(cmd.Context(), "/sw/sync/"+args[0], &resp); err != nil {
					return err
				}
				if printer.Format() == output.FormatJSON {
					return printer.Print(resp.Result)
				}
				if err := printer.Print(registrationList{resp.Result.Registration}); err != nil {
					return err
				}
				fmt.Fprintln(opts.out)
				return printer.Print(attemptList(resp.Result.Attempts))
			},
		},
	)
	return cmd
}

func newSyncListCmd(opts *rootOptions) *cobra.Command {
	var (
		limit int
		order string
		after uint
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List background sync registrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := opts.printer()
			if err != nil {
				return err
			}
			client, err := opts.scopedClient()
			if err != nil {
				return err
			}
			params := url.Values{}
			params.Set("limit", strconv.Itoa(limit))
			params.Set("order", order)
			if after > 0 {
				params.Set("after", strconv.FormatUint(uint64(after), 10))
			}
			var resp responses.ListResponse[*backgroundsync.Registration]
			if err := client.Get(cmd.Context(), "/sw/sync?"+params.Encode(), &resp); err != nil {
				return err
			}
			if printer.Format() == output.FormatJSON {
				return printer.Print(resp.Results)
			}
			return printer.Print(registrationList(resp.Results))
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum registrations to return")
	cmd.Flags().StringVar(&order, "order", query.OrderAsc, "Sort by id (asc|desc)")
	cmd.Flags().UintVar(&after, "after", 0, "Only registrations past this id")
	return cmd
}

package commands

import (
	"github.com/spf13/cobra"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
)

func newSkipWaitingCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "skip-waiting",
		Short: "Ask the waiting worker to take control",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := opts.printer()
			if err != nil {
				return err
			}
			msg := offlinecache.Message{Type: offlinecache.MessageSkipWaiting}
			if err := opts.client().Post(cmd.Context(), "/sw/messages", msg, nil); err != nil {
				return err
			}
			printer.Success("SKIP_WAITING delivered")
			return nil
		},
	}
}

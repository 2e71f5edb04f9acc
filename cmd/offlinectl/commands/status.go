package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/interfaces/http/routes/sw"
	"inspectra.app/offline-gateway/cmd/offlinectl/output"
)

type statusView sw.StatusResponse

func (v statusView) Headers() []string {
	return []string{"SLOT", "VERSION", "STATE", "INSTALLED", "ACTIVATED"}
}

func (v statusView) Rows() [][]string {
	rows := make([][]string, 0, 3)
	slots := []struct {
		name   string
		worker *offlinecache.WorkerStatus
	}{
		{"installing", v.Registration.Installing},
		{"waiting", v.Registration.Waiting},
		{"active", v.Registration.Active},
	}
	for _, slot := range slots {
		if slot.worker == nil {
			rows = append(rows, []string{slot.name, "-", "-", "-", "-"})
			continue
		}
		rows = append(rows, []string{
			slot.name,
			slot.worker.Version,
			string(slot.worker.State),
			formatTime(slot.worker.InstalledAt),
			formatTime(slot.worker.ActivatedAt),
		})
	}
	return rows
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show worker versions and connected pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printer, err := opts.printer()
			if err != nil {
				return err
			}
			var status sw.StatusResponse
			if err := opts.client().Get(cmd.Context(), "/sw/status", &status); err != nil {
				return err
			}
			if printer.Format() == output.FormatJSON {
				return printer.Print(status)
			}
			if err := printer.Print(statusView(status)); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "\nclients: %d  pending ports: %d\n", len(status.Clients), status.PendingPorts)
			return nil
		},
	}
}

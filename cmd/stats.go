package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/mosquedir/mosqueadmin/internal/utils"
	"github.com/mosquedir/mosqueadmin/pkg/dashboard"
	"github.com/mosquedir/mosqueadmin/pkg/storage"
	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints admin-status statistics for the directory.",
	Long: `Prints admin-status statistics for the live directory. With --snapshot the last recorded
snapshot is summarised instead and no backend call is made.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fromSnapshot, _ := cmd.Flags().GetBool("snapshot")

		if fromSnapshot {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()
			stats, err := e.db.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			if len(stats) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No snapshot recorded yet.")
				return nil
			}
			printSnapshotStats(cmd.OutOrStdout(), stats)
			return nil
		}

		e, err := openAuthedEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		d := dashboard.New(e.backend, dashboard.Options{Log: utils.Log})
		if err := d.Refresh(cmd.Context()); err != nil {
			e.notify.LoadFailed(err)
			return err
		}
		printLiveStats(cmd.OutOrStdout(), d.Stats())
		return nil
	},
}

func printLiveStats(out io.Writer, s dashboard.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "STATUS\tMOSQUES\t")
	fmt.Fprintf(w, "approved\t%d\t\n", s.Approved)
	fmt.Fprintf(w, "no_admin\t%d\t\n", s.NoAdmin)
	fmt.Fprintln(w, " \t \t")
	fmt.Fprintf(w, "TOTAL\t%d\t\n", s.Total)
	fmt.Fprintln(w, " \t \t")
	fmt.Fprintf(w, "pending admins\t%d\t\n", s.PendingAdmins)
	fmt.Fprintf(w, "rejected admins\t%d\t\n", s.RejectedAdmins)
	w.Flush()
}

func printSnapshotStats(out io.Writer, stats []storage.StatusStats) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "STATUS\tMOSQUES\tPENDING\tREJECTED\t")

	var totalMosques, totalPending, totalRejected int
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t\n", s.Status, s.MosqueCount, s.PendingCount, s.RejectedCount)
		totalMosques += s.MosqueCount
		totalPending += s.PendingCount
		totalRejected += s.RejectedCount
	}

	fmt.Fprintln(w, " \t \t \t \t")
	fmt.Fprintf(w, "TOTAL\t%d\t%d\t%d\t\n", totalMosques, totalPending, totalRejected)
	w.Flush()
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Bool("snapshot", false, "Summarise the last recorded snapshot instead of the live directory")
}

package cmd

import (
	"fmt"

	"github.com/mosquedir/mosqueadmin/internal/utils"
	"github.com/mosquedir/mosqueadmin/pkg/actions"
	"github.com/mosquedir/mosqueadmin/pkg/dashboard"
	"github.com/mosquedir/mosqueadmin/pkg/directory"
	"github.com/mosquedir/mosqueadmin/pkg/query"
	"github.com/spf13/cobra"
)

var mosquesCmd = &cobra.Command{
	Use:   "mosques",
	Short: "List mosques with their admin status",
	Long: `Loads the directory, reconciles every mosque with its approved, pending and rejected admins
and prints the mosques matching the filters.

Searching for an admin-status phrase such as "no admin" or "has admin" filters on admin
presence; pass --synonym-shortcut to have such phrases match every mosque instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFlags, _ := cmd.Flags().GetString("output")
		delimiter, _ := cmd.Flags().GetString("delimiter")
		record, _ := cmd.Flags().GetBool("record")
		if err := directory.ValidateOutputFlags(outputFlags); err != nil {
			return err
		}
		st, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}

		e, err := openAuthedEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		opts := dashboard.Options{Log: utils.Log, Query: st}
		if record {
			opts.OnLoad = snapshotHook(e.db, e.notify)
		}
		d := dashboard.New(e.backend, opts)
		if err := d.Refresh(cmd.Context()); err != nil {
			e.notify.LoadFailed(err)
			return err
		}
		return directory.PrintViews(cmd.OutOrStdout(), d.Visible(), outputFlags, delimiter)
	},
}

var mosquesDeleteCmd = &cobra.Command{
	Use:   "delete [mosque-id...]",
	Short: "Delete mosques from the directory",
	Long: `Deletes the given mosques, or with --all-matching every mosque matching the list filters.
A reason of at least 10 characters is required and is sent to the backend with each deletion.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		allMatching, _ := cmd.Flags().GetBool("all-matching")
		batched, _ := cmd.Flags().GetBool("batched")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		if allMatching == (len(args) > 0) {
			return fmt.Errorf("pass either mosque ids or --all-matching")
		}
		// Fail before touching the network.
		if err := actions.ValidateReason(reason); err != nil {
			return err
		}
		st, err := queryFromFlags(cmd)
		if err != nil {
			return err
		}

		e, err := openAuthedEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		delOpts := actions.Options{Batched: batched, Concurrency: concurrency}
		var report actions.Report
		if allMatching {
			d := dashboard.New(e.backend, dashboard.Options{Log: utils.Log, Query: st, Delete: delOpts})
			if err := d.Refresh(cmd.Context()); err != nil {
				e.notify.LoadFailed(err)
				return err
			}
			if d.SelectAll() == 0 {
				e.notify.Warn("No mosque matches the filters, nothing deleted")
				return nil
			}
			report, err = d.DeleteSelected(cmd.Context(), reason)
		} else {
			ids := make([]string, 0, len(args))
			for _, a := range args {
				ids = append(ids, directory.NormalizeID(a))
			}
			report, err = actions.BulkDelete(cmd.Context(), e.backend, ids, reason, delOpts)
		}
		if err != nil {
			return err
		}
		e.notify.Report("Deleted", report)
		if !report.OK() {
			return fmt.Errorf("%d deletion(s) failed", len(report.Failed))
		}
		return nil
	},
}

var mosquesAssignCmd = &cobra.Command{
	Use:   "assign <mosque-id> <admin-email>",
	Short: "Assign an approved admin to a mosque",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openAuthedEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := actions.AssignAdmin(cmd.Context(), e.backend, args[0], args[1]); err != nil {
			e.notify.Error("Could not assign %s to %s: %v", args[1], args[0], err)
			return err
		}
		e.notify.Success("Assigned %s as admin of %s", args[1], args[0])
		return nil
	},
}

func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("search", "s", "", "Case-insensitive search over mosque and admin fields")
	cmd.Flags().String("status", "all", "Mosque status: all, approved, no_admin")
	cmd.Flags().String("admin", "all", "Admin presence: all, has, none")
	cmd.Flags().Bool("synonym-shortcut", false, "Admin-status search phrases match every mosque")
}

func queryFromFlags(cmd *cobra.Command) (query.State, error) {
	search, _ := cmd.Flags().GetString("search")
	statusStr, _ := cmd.Flags().GetString("status")
	adminStr, _ := cmd.Flags().GetString("admin")
	shortcut, _ := cmd.Flags().GetBool("synonym-shortcut")

	status, err := query.ParseStatusFilter(statusStr)
	if err != nil {
		return query.State{}, err
	}
	admin, err := query.ParseAdminFilter(adminStr)
	if err != nil {
		return query.State{}, err
	}
	return query.State{Search: search, Status: status, Admin: admin, SynonymShortcut: shortcut}, nil
}

func init() {
	rootCmd.AddCommand(mosquesCmd)
	mosquesCmd.AddCommand(mosquesDeleteCmd)
	mosquesCmd.AddCommand(mosquesAssignCmd)

	addQueryFlags(mosquesCmd)
	mosquesCmd.Flags().StringP("output", "o", "ins", "Output flags. Supported: i (id), n (name), l (location), s (status), a (approved admin), p (pending count), r (rejected count), c (verification code)")
	mosquesCmd.Flags().StringP("delimiter", "d", " ", "Delimiter character to use for txt output format")
	mosquesCmd.Flags().Bool("record", false, "Record the loaded directory in the local snapshot history")

	addQueryFlags(mosquesDeleteCmd)
	mosquesDeleteCmd.Flags().StringP("reason", "r", "", "Why the mosques are deleted (at least 10 characters)")
	mosquesDeleteCmd.Flags().Bool("all-matching", false, "Delete every mosque matching the filters")
	mosquesDeleteCmd.Flags().Bool("batched", false, "Send one bulk-delete request instead of one per mosque")
	mosquesDeleteCmd.Flags().Int("concurrency", 4, "Parallel delete requests")
}

package cmd

import (
	"github.com/mosquedir/mosqueadmin/pkg/actions"
	"github.com/spf13/cobra"
)

var adminsCmd = &cobra.Command{
	Use:   "admins",
	Short: "Review mosque admin applications",
}

var adminsApproveCmd = &cobra.Command{
	Use:   "approve <admin-id>",
	Short: "Approve a pending admin application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openAuthedEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := actions.ApproveAdmin(cmd.Context(), e.backend, args[0]); err != nil {
			e.notify.Error("Could not approve %s: %v", args[0], err)
			return err
		}
		e.notify.Success("Approved admin %s", args[0])
		return nil
	},
}

var adminsRejectCmd = &cobra.Command{
	Use:   "reject <admin-id>",
	Short: "Reject a pending admin application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		if err := actions.ValidateReason(reason); err != nil {
			return err
		}

		e, err := openAuthedEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := actions.RejectAdmin(cmd.Context(), e.backend, args[0], reason); err != nil {
			e.notify.Error("Could not reject %s: %v", args[0], err)
			return err
		}
		e.notify.Success("Rejected admin %s", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(adminsCmd)
	adminsCmd.AddCommand(adminsApproveCmd)
	adminsCmd.AddCommand(adminsRejectCmd)

	adminsRejectCmd.Flags().StringP("reason", "r", "", "Why the application is rejected (at least 10 characters)")
}

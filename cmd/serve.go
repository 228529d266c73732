package cmd

import (
	"github.com/mosquedir/mosqueadmin/internal/server"
	"github.com/mosquedir/mosqueadmin/internal/utils"
	"github.com/mosquedir/mosqueadmin/pkg/dashboard"
	"github.com/mosquedir/mosqueadmin/pkg/polling"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the admin console over a local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		refreshEvery, _ := cmd.Flags().GetDuration("refresh")

		e, err := openAuthedEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		d := dashboard.New(e.backend, dashboard.Options{
			Log:    utils.Log,
			OnLoad: snapshotHook(e.db, e.notify),
		})
		if err := d.Refresh(cmd.Context()); err != nil {
			// The API stays up with an empty list; POST /api/refresh retries.
			e.notify.LoadFailed(err)
		}

		if refreshEvery > 0 {
			go polling.Run(cmd.Context(), polling.Config{Target: d, Interval: refreshEvery, Log: utils.Log})
		}

		srv := server.New(d, e.db, viper.GetString("serve.username"), viper.GetString("serve.password"))
		return srv.Start(cmd.Context(), listenAddr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "127.0.0.1:8080", "HTTP listen address")
	serveCmd.Flags().Duration("refresh", 0, "Reload the directory at this interval (0 disables)")
}

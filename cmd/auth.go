package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/mosquedir/mosqueadmin/pkg/session"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the directory backend",
	Long: `Logs in and stores the session in the local database. Accounts whose admin application
is pending or was rejected, admins who were removed and admins of deleted mosques are told so
and no session is created.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" {
			email = viper.GetString("auth.email")
		}
		if email == "" {
			return fmt.Errorf("please provide your email (--email flag)")
		}
		if password == "" {
			// Read from stdin so the password stays out of shell history.
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("please provide your password (--password flag or stdin)")
			}
			password = strings.TrimRight(line, "\r\n")
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		outcome, err := e.sessions.Login(cmd.Context(), email, password)
		if err != nil {
			e.notify.Error("Login failed: %v", err)
			return err
		}
		e.notify.Login(outcome)
		if _, ok := outcome.(session.Authenticated); !ok {
			return errors.New("login refused")
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		err = e.sessions.Logout(cmd.Context())
		switch {
		case errors.Is(err, session.ErrNoSession):
			e.notify.Warn("Not logged in")
			return nil
		case err != nil:
			e.notify.Warn("Local session removed, but the server could not be told: %v", err)
			return nil
		}
		e.notify.Success("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		s, err := e.sessions.Current(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s <%s>\n", s.Name, s.Email)
		fmt.Fprintf(out, "role:    %s\n", s.Role)
		if s.MosqueID != "" {
			fmt.Fprintf(out, "mosque:  %s\n", s.MosqueID)
		}
		fmt.Fprintf(out, "expires: %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringP("email", "e", "", "Account email (default: auth.email from the config)")
	loginCmd.Flags().StringP("password", "p", "", "Account password (read from stdin when omitted)")
}

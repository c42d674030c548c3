package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-triage/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authorize read-only access to your Gmail inbox",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		flow, err := auth.NewFlow(a.cfg.Gmail.CredentialsFile)
		if err != nil {
			return err
		}

		fmt.Printf("Open the following link in your browser, then paste the authorization code:\n%s\n\ncode: ", flow.AuthURL())
		var authCode string
		if _, err := fmt.Scan(&authCode); err != nil {
			return fmt.Errorf("reading authorization code: %w", err)
		}

		cred, err := flow.Exchange(ctx, authCode)
		if err != nil {
			return err
		}
		if err := a.coordinator.Login(ctx, cred); err != nil {
			return err
		}

		fmt.Println("Logged in.")
		if n := len(a.coordinator.Emails()); n > 0 {
			fmt.Printf("%d previously fetched emails restored.\n", n)
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored credential and email collection",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.coordinator.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

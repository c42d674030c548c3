package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-triage/internal/mailbox"
	"github.com/nhle/mail-triage/internal/triage"
)

var fetchMore bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a page of recent inbox messages",
	Long: `Fetch a page of recent messages from the inbox.

By default the fetched page replaces the current collection. With
--more, the next page (continuing from the last fetch) is appended,
skipping messages already present.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := requireAuth(a); err != nil {
			return err
		}

		pageToken := ""
		if fetchMore {
			pageToken = a.coordinator.NextPageToken()
			if pageToken == "" {
				fmt.Println("No further pages.")
				return nil
			}
		}

		err = a.coordinator.FetchPage(ctx, pageToken)
		if mailbox.IsAuthError(err) || errors.Is(err, triage.ErrNotAuthenticated) {
			return fmt.Errorf("session expired, run 'triage login' again")
		}
		if err != nil {
			return err
		}

		fmt.Printf("%d emails in collection.\n", len(a.coordinator.Emails()))
		if a.coordinator.NextPageToken() != "" {
			fmt.Println("More available: run 'triage fetch --more'.")
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchMore, "more", false, "Append the next page instead of refreshing")
	rootCmd.AddCommand(fetchCmd)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <id>",
	Short: "Summarize one email and extract its action items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id := args[0]
		if err := a.coordinator.Summarize(ctx, id); err != nil {
			return err
		}

		for _, e := range a.coordinator.Emails() {
			if e.ID != id {
				continue
			}
			if !e.Summarized {
				return fmt.Errorf("no email with id %s", id)
			}
			fmt.Printf("Subject: %s\nFrom:    %s\n\nSummary: %s\n", e.Subject, e.From, e.Summary)
			if e.ActionItems != "" {
				fmt.Printf("\nAction items:\n%s\n", e.ActionItems)
			} else {
				fmt.Println("\nNo action items.")
			}
			return nil
		}
		return fmt.Errorf("no email with id %s", id)
	},
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-triage/internal/triage"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify every uncategorized email",
	Long: `Classify every email still in the uncategorized bucket, one at a
time. Emails the model cannot classify land in "other". Already
categorized emails are untouched; with nothing pending this is a
no-op.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		pending := len(a.coordinator.EmailsByCategory(triage.FilterUncategorized))
		if pending == 0 {
			fmt.Println("Nothing to classify.")
			return nil
		}

		// Stream batch progress while the sequential loop runs.
		subID, events := a.coordinator.Subscribe()
		defer a.coordinator.Unsubscribe(subID)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range events {
				if ev.Type != triage.EventProgress {
					continue
				}
				if p := a.coordinator.Progress(); p != nil {
					fmt.Printf("\rclassifying %d/%d", p.Processed, p.Total)
				}
			}
		}()

		err = a.coordinator.ClassifyPending(ctx)
		a.coordinator.Unsubscribe(subID)
		<-done
		fmt.Println()
		if err != nil {
			return err
		}

		printCounts(a)
		return nil
	},
}

// printCounts prints per-category totals, sentinels first.
func printCounts(a *app) {
	counts := a.coordinator.CategoryCounts()

	names := make([]string, 0, len(counts))
	for name := range counts {
		if name != triage.FilterAll && name != triage.FilterUncategorized {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	fmt.Printf("%-20s %d\n", triage.FilterAll, counts[triage.FilterAll])
	fmt.Printf("%-20s %d\n", triage.FilterUncategorized, counts[triage.FilterUncategorized])
	for _, name := range names {
		fmt.Printf("%-20s %d\n", name, counts[name])
	}
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

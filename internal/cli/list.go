package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-triage/internal/triage"
)

var listCategory string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the fetched emails",
	Long: `List the current email collection in fetch order.

--category filters by a category name, or the "All" / "Uncategorized"
sentinels.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		emails := a.coordinator.EmailsByCategory(listCategory)
		if len(emails) == 0 {
			fmt.Println("No emails. Run 'triage fetch' first.")
			return nil
		}

		for _, e := range emails {
			meta := a.categories.Meta(e.Category)
			summarized := " "
			if e.Summarized {
				summarized = "S"
			}
			fmt.Printf("%-18s %s %-14s %s  %-40s %s\n",
				e.ID, meta.Icon, meta.Label, summarized,
				clip(e.Subject, 40), clip(e.From, 30))
		}
		return nil
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show the category list with per-category counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		counts := a.coordinator.CategoryCounts()
		for _, name := range a.coordinator.Categories() {
			fmt.Printf("%-20s %d\n", name, counts[name])
		}
		return nil
	},
}

// clip shortens s for table display.
func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func init() {
	listCmd.Flags().StringVar(&listCategory, "category", triage.FilterAll, "Filter by category name")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(categoriesCmd)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/mail-triage/internal/credential"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage the text-generation API key",
}

var apikeySetCmd = &cobra.Command{
	Use:   "set <key>",
	Short: "Store the Gemini API key in the system keyring",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credential.Set(credential.KeyGeminiAPIKey, args[0]); err != nil {
			return err
		}
		fmt.Println("API key stored.")
		return nil
	},
}

var apikeyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the Gemini API key from the system keyring",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credential.Delete(credential.KeyGeminiAPIKey); err != nil {
			return err
		}
		fmt.Println("API key removed.")
		return nil
	},
}

func init() {
	apikeyCmd.AddCommand(apikeySetCmd)
	apikeyCmd.AddCommand(apikeyClearCmd)
	rootCmd.AddCommand(apikeyCmd)
}

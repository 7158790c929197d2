package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Clear-all-specific flags
var clearAllYes bool

// clearAllCmd represents the clear-all command
var clearAllCmd = &cobra.Command{
	Use:   "clear-all",
	Short: "Remove all stored sessions",
	Long: `Remove every stored session for every user.

Asks for confirmation unless --yes is given.

Examples:
  entraflow clear-all        # Ask before clearing
  entraflow clear-all --yes  # Clear without confirmation`,
	Args: cobra.NoArgs,
	RunE: runClearAll,
}

func init() {
	clearAllCmd.Flags().BoolVarP(&clearAllYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(clearAllCmd)
}

func runClearAll(cmd *cobra.Command, args []string) error {
	auth, err := newSessionOnlyAuthenticator()
	if err != nil {
		return err
	}

	records, err := auth.Sessions()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		quietPrintln("No stored sessions to clear.")
		return nil
	}

	if !clearAllYes {
		fmt.Printf("The following %d session(s) will be removed:\n", len(records))
		for _, record := range records {
			fmt.Printf("  - %s\n", record.Username)
		}
		fmt.Print("\nAre you sure you want to remove all sessions? [y/N]: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	if err := auth.ClearAllSessions(); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}

	quietPrint("Cleared %d stored session(s).\n", len(records))
	return nil
}

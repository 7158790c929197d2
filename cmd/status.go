package cmd

import (
	"fmt"
	"os"

	"entraflow/internal/session"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status [username]",
	Short: "Show stored session status",
	Long: `Show the stored session status.

With a username, shows that user's session in detail. Without arguments,
lists all valid stored sessions in a table. Sessions found expired or
unreadable are removed as a side effect of listing.

Examples:
  entraflow status                     # List all valid sessions
  entraflow status alice@example.com   # Show one user's session`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	auth, err := newSessionOnlyAuthenticator()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return showUserStatus(args[0], auth)
	}

	records, err := auth.Sessions()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		quietPrintln("No stored sessions.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{
		text.FgHiCyan.Sprint("USERNAME"),
		text.FgHiCyan.Sprint("COOKIES"),
		text.FgHiCyan.Sprint("TOKENS"),
		text.FgHiCyan.Sprint("EXPIRES"),
	})
	for _, record := range records {
		t.AppendRow(table.Row{
			record.Username,
			len(record.Cookies),
			len(record.Tokens),
			formatExpiryWithDirection(record.ExpiresAt),
		})
	}
	t.Render()
	return nil
}

func showUserStatus(username string, auth sessionReader) error {
	record, err := auth.Session(username)
	if err != nil {
		return err
	}
	if record == nil {
		quietPrintln("Run 'entraflow login " + username + "' to authenticate.")
		return fmt.Errorf("%s has no valid session", username)
	}

	quietPrint("%s %s is authenticated.\n", text.FgGreen.Sprint("✓"), username)
	quietPrint("  Created:  %s\n", record.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	quietPrint("  Expires:  %s\n", formatExpiryWithDirection(record.ExpiresAt))
	quietPrint("  Cookies:  %d\n", len(record.Cookies))
	quietPrint("  Tokens:   %d\n", len(record.Tokens))
	return nil
}

// sessionReader is the slice of the authenticator used by status output.
type sessionReader interface {
	Session(username string) (*session.Record, error)
}

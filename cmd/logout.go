package cmd

import (
	"entraflow/internal/authenticator"

	"github.com/spf13/cobra"
)

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout <username>",
	Short: "Remove the stored session for a user",
	Long: `Remove the cached session for a user.

The next login for this user will run the full browser flow. Logging out
a user with no stored session is not an error.

Examples:
  entraflow logout alice@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	username := args[0]

	auth, err := newSessionOnlyAuthenticator()
	if err != nil {
		return err
	}

	if err := auth.Logout(username); err != nil {
		return err
	}

	quietPrint("Logged out %s\n", username)
	return nil
}

// newSessionOnlyAuthenticator builds an Authenticator for commands that only
// touch the session store. These work without a configured client ID, so
// Validate is deliberately not called.
func newSessionOnlyAuthenticator() (*authenticator.Authenticator, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return authenticator.New(&cfg, nil)
}

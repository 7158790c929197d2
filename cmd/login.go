package cmd

import (
	"fmt"
	"time"

	"entraflow/internal/authenticator"
	"entraflow/internal/browser"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

// Login-specific flags
var (
	loginForceNew bool
	loginHeadless bool
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Authenticate a user through the browser sign-in flow",
	Long: `Authenticate a user against Microsoft Entra ID.

If a valid cached session exists for the user it is reused and no browser
is started. Otherwise a browser window opens on the sign-in page and a
human operator enters the password and completes any MFA challenge while
the command polls for the outcome.

Examples:
  entraflow login alice@example.com              # Reuse cached session if valid
  entraflow login alice@example.com --force-new  # Always run the browser flow
  entraflow login alice@example.com --headless   # Run the browser headless`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&loginForceNew, "force-new", false, "Ignore any cached session and run a fresh browser flow")
	loginCmd.Flags().BoolVar(&loginHeadless, "headless", false, "Run the browser without a visible window")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	headless := cfg.Headless
	if cmd.Flags().Changed("headless") {
		headless = loginHeadless
	}

	auth, err := authenticator.New(&cfg, &browser.RodLauncher{Headless: headless})
	if err != nil {
		return err
	}

	// A cached session makes the whole command instant; only start the
	// spinner when a browser flow is actually coming.
	interactive := loginForceNew || !auth.IsAuthenticated(username)

	var s *spinner.Spinner
	if interactive && !flagQuiet {
		quietPrintln("Opening browser; complete the sign-in in the window that appears.")
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = fmt.Sprintf(" Waiting for %s to sign in...", username)
		s.Start()
	}

	result, err := auth.Login(cmd.Context(), username, loginForceNew)
	if s != nil {
		s.Stop()
	}

	if !result.Success {
		quietPrint("%s Authentication failed: %s\n", text.FgRed.Sprint("✗"), result.Error)
		return &authFailedError{message: result.Error}
	}
	if err != nil {
		// Authentication succeeded but the session could not be cached.
		quietPrint("%s Session could not be saved: %v\n", text.FgYellow.Sprint("!"), err)
	}

	if result.FromCache {
		quietPrint("%s %s is already authenticated (cached session).\n", text.FgGreen.Sprint("✓"), username)
	} else {
		quietPrint("%s %s authenticated successfully.\n", text.FgGreen.Sprint("✓"), username)
	}
	quietPrint("  Cookies:  %d\n", len(result.Cookies))
	quietPrint("  Tokens:   %d\n", len(result.Tokens))

	if record, loadErr := auth.Session(username); loadErr == nil && record != nil {
		quietPrint("  Expires:  %s\n", formatExpiryWithDirection(record.ExpiresAt))
	}
	return nil
}

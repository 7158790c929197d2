package cmd

import (
	"errors"
	"io"
	"os"

	"entraflow/internal/config"
	"entraflow/pkg/logging"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
// These follow common conventions for scripting and automation.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigError indicates the configuration is missing or invalid.
	ExitCodeConfigError = 2
	// ExitCodeAuthFailed indicates the interactive authentication flow failed.
	ExitCodeAuthFailed = 3
)

// Global flags shared by all subcommands.
var (
	flagConfigPath string
	flagEnvFile    string
	flagQuiet      bool
	flagDebug      bool
)

// authFailedError marks an authentication flow failure so Execute can map it
// to ExitCodeAuthFailed.
type authFailedError struct {
	message string
}

func (e *authFailedError) Error() string {
	return e.message
}

// rootCmd represents the base command for the entraflow application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "entraflow",
	Short: "Interactive browser authentication for Microsoft Entra ID",
	Long: `entraflow drives an interactive browser-based OAuth sign-in against
Microsoft Entra ID, with a human operator entering credentials and
completing MFA challenges. Successful sessions (cookies and tokens)
are cached on disk and reused until they expire.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if flagDebug {
			level = logging.LevelDebug
		}
		output := io.Writer(os.Stderr)
		if flagQuiet && !flagDebug {
			level = logging.LevelError
		}
		logging.Init(level, output)
	},
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "entraflow version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var configErr *config.ConfigurationError
	if errors.As(err, &configErr) {
		return ExitCodeConfigError
	}

	var authFailed *authFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// loadConfig resolves configuration for the current invocation from the
// config file, optional env file, and environment overrides.
func loadConfig() (config.Config, error) {
	path := flagConfigPath
	if path == "" {
		path = config.GetDefaultConfigPathOrPanic()
	}
	return config.Load(path, flagEnvFile)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config-path", "", "Path to the configuration file (default is $HOME/.config/entraflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Path to an env file to load before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress informational output")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"ringclient/internal/config"
	"ringclient/pkg/auth"
	"ringclient/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates no stored login is available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates Ring rejected the credentials or MFA code.
	ExitCodeAuthFailed = 3
)

// Persistent flags shared by every command.
var (
	configPath string
	logLevel   string
	logFormat  string
	quiet      bool
)

// appConfig is loaded before any subcommand runs.
var appConfig config.RingConfig

// rootCmd represents the base command for the ringclient application.
var rootCmd = &cobra.Command{
	Use:   "ringclient",
	Short: "Talk to your Ring account from the command line",
	Long: `ringclient logs in to a Ring account, lists its devices and locations,
and streams real-time location events.

The refresh token obtained at login is stored so that later commands
do not need the password or an MFA code again.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: loadAppConfig,
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
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ringclient version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if errors.Is(err, auth.ErrInvalidCredentials) ||
		errors.Is(err, auth.ErrMfaCodeRequired) ||
		errors.Is(err, auth.ErrSessionFailed) {
		return ExitCodeAuthFailed
	}

	var unsupported *auth.UnsupportedChallengeError
	if errors.As(err, &unsupported) {
		return ExitCodeAuthFailed
	}

	if errors.Is(err, errNotLoggedIn) || errors.Is(err, auth.ErrNotAuthenticated) {
		return ExitCodeAuthRequired
	}

	return ExitCodeError
}

// loadAppConfig reads the configuration and initialises logging. Flags win
// over the configuration file and environment.
func loadAppConfig(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		configPath = config.GetDefaultConfigPathOrPanic()
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	appConfig = cfg

	logging.Init(logging.ParseLevel(cfg.Log.Level), logging.Format(cfg.Log.Format), cmd.ErrOrStderr())
	logging.Debug("CLI", "Using configuration directory %s", configPath)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default $HOME/.config/ringclient)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newLocationsCmd())
	rootCmd.AddCommand(newListenCmd())
	rootCmd.AddCommand(newSendCmd())
}

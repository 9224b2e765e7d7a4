package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"ringclient/internal/tokenstore"
	"ringclient/pkg/auth"
	"ringclient/pkg/ring"
)

// maxCodeAttempts bounds how often a wrong MFA code is re-prompted.
const maxCodeAttempts = 3

// newPrompter is replaced in tests.
var newPrompter = func(cmd *cobra.Command) (prompter, error) {
	return newReadlinePrompter(io.NopCloser(cmd.InOrStdin()), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

type loginOptions struct {
	username     string
	refreshToken string
}

func newLoginCmd() *cobra.Command {
	opts := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Ring and store the refresh token",
		Long: `Log in to Ring with your email and password, completing an MFA
challenge if Ring asks for one. The resulting refresh token is stored in
the configured token store so that other commands can run unattended.

Examples:
  ringclient login
  ringclient login --username me@example.com
  ringclient login --refresh-token <token>   # import a token from elsewhere`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "Ring account email")
	cmd.Flags().StringVar(&opts.refreshToken, "refresh-token", "", "Log in with an existing refresh token instead of a password")
	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	progress := cmd.ErrOrStderr()

	store, err := tokenstore.New(ctx, appConfig.TokenStore)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := newRingClient(appConfig)
	if err != nil {
		return err
	}

	var creds ring.Credentials
	var p prompter
	if opts.refreshToken != "" {
		creds = ring.RefreshToken{Value: opts.refreshToken}
	} else {
		p, err = newPrompter(cmd)
		if err != nil {
			return err
		}
		defer p.Close()

		creds, err = promptPassword(p, opts.username)
		if err != nil {
			return err
		}
	}

	err = withSpinner(progress, "Logging in to Ring...", func() error {
		return client.Login(ctx, creds)
	})

	for attempt := 1; err != nil && client.State() == auth.StateMfaRequired; attempt++ {
		var unsupported *auth.UnsupportedChallengeError
		if p == nil || attempt > maxCodeAttempts || errors.As(err, &unsupported) {
			return err
		}
		if attempt > 1 {
			fmt.Fprintln(progress, text.FgYellow.Sprint("That code was not accepted."))
		}

		challenge, _ := client.PendingChallenge()
		code, perr := p.Line(codePrompt(challenge))
		if perr != nil {
			return perr
		}

		err = withSpinner(progress, "Verifying code...", func() error {
			return client.RespondToChallenge(ctx, code)
		})
	}
	if err != nil {
		return err
	}

	token, ok := client.RefreshToken()
	if !ok {
		return errors.New("ring did not return a refresh token")
	}
	if err := store.Save(ctx, token); err != nil {
		return fmt.Errorf("logged in, but the refresh token could not be stored: %w", err)
	}

	if profile, ok := client.Profile(); ok && profile.Email != "" {
		printf(out, "%s Logged in as %s\n", text.FgGreen.Sprint("✓"), profile.Email)
	} else {
		printf(out, "%s Logged in\n", text.FgGreen.Sprint("✓"))
	}
	return nil
}

func promptPassword(p prompter, username string) (ring.Credentials, error) {
	var err error
	if username == "" {
		username, err = p.Line("Email: ")
		if err != nil {
			return nil, err
		}
	}
	if username == "" {
		return nil, errors.New("an email address is required")
	}

	password, err := p.Password("Password: ")
	if err != nil {
		return nil, err
	}
	return ring.UserPassword{Username: username, Password: password}, nil
}

func codePrompt(c auth.Challenge) string {
	switch {
	case c.Method == "totp":
		return "Authenticator code: "
	case c.Destination != "":
		return fmt.Sprintf("Code sent to %s: ", c.Destination)
	default:
		return "Verification code: "
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored refresh token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			store, err := tokenstore.New(ctx, appConfig.TokenStore)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Delete(ctx); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "Stored login removed.\n")
			if appConfig.RefreshToken != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), text.FgYellow.Sprint("RING_REFRESH_TOKEN is still set in the environment."))
			}
			return nil
		},
	}
}

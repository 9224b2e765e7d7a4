package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ringclient/pkg/auth"
	"ringclient/pkg/ring"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func addOutputFlag(cmd *cobra.Command, output *string) {
	cmd.Flags().StringVarP(output, "output", "o", outputTable, "Output format: table or json")
}

func checkOutput(output string) error {
	if output != outputTable && output != outputJSON {
		return fmt.Errorf("unsupported output format %q (supported: table, json)", output)
	}
	return nil
}

func newStatusCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the login state and account summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			ctx := commandContext(cmd)
			out := cmd.OutOrStdout()

			s, err := openSession(ctx, appConfig)
			if errors.Is(err, errNotLoggedIn) {
				unauthenticated := auth.StateUnauthenticated.String()
				if output == outputJSON {
					status := accountStatus{StatusResponse: auth.StatusResponse{State: unauthenticated}}
					if werr := writeJSON(out, status); werr != nil {
						return werr
					}
				} else {
					fmt.Fprintln(out, stateText(unauthenticated))
				}
				return err
			}
			if err != nil {
				return err
			}
			defer s.Close()

			status, err := collectStatus(ctx, s.client)
			if err != nil {
				return err
			}
			if output == outputJSON {
				return writeJSON(out, status)
			}
			renderStatus(out, status)
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

// collectStatus fetches devices and locations concurrently.
func collectStatus(ctx context.Context, client *ring.Client) (accountStatus, error) {
	var devices []ring.Device
	var locations []ring.Location

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		devices, err = client.Devices(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		locations, err = client.Locations(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return accountStatus{}, err
	}

	status := accountStatus{
		StatusResponse: client.Status(),
		Devices:        len(devices),
		Locations:      len(locations),
	}
	if profile, ok := client.Profile(); ok {
		status.Email = profile.Email
		status.Name = strings.TrimSpace(profile.FirstName + " " + profile.LastName)
	}
	return status, nil
}

func newTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print the current refresh token",
		Long: `Print the current refresh token, refreshing the stored login first.
The token grants full access to the account; treat it like a password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(commandContext(cmd), appConfig)
			if err != nil {
				return err
			}
			defer s.Close()

			token, ok := s.client.RefreshToken()
			if !ok {
				return errNotLoggedIn
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

func newDevicesCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"device", "dev"},
		Short:   "List the devices in the account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			ctx := commandContext(cmd)

			s, err := openSession(ctx, appConfig)
			if err != nil {
				return err
			}
			defer s.Close()

			var devices []ring.Device
			err = withSpinner(cmd.ErrOrStderr(), "Fetching devices...", func() error {
				devices, err = s.client.Devices(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), devices)
			}
			renderDevices(cmd.OutOrStdout(), devices)
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

func newLocationsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"location", "loc"},
		Short:   "List the locations in the account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkOutput(output); err != nil {
				return err
			}
			ctx := commandContext(cmd)

			s, err := openSession(ctx, appConfig)
			if err != nil {
				return err
			}
			defer s.Close()

			var locations []ring.Location
			err = withSpinner(cmd.ErrOrStderr(), "Fetching locations...", func() error {
				locations, err = s.client.Locations(ctx)
				return err
			})
			if err != nil {
				return err
			}

			if output == outputJSON {
				return writeJSON(cmd.OutOrStdout(), locations)
			}
			renderLocations(cmd.OutOrStdout(), locations)
			return nil
		},
	}
	addOutputFlag(cmd, &output)
	return cmd
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/peer-chess/internal/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newInitCmd(app *app) *cobra.Command {
	var (
		name     string
		identity string
		relayURL string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or update the local player profile",
		Long:  "init writes the player profile to the config file. A new identity is generated unless one is given or already configured.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile := domain.Profile{
				Identity: domain.Identity(firstNonEmpty(identity, app.config.GetString(profileIdentityKey))),
				Name:     firstNonEmpty(name, app.config.GetString(profileNameKey)),
				RelayURL: firstNonEmpty(relayURL, app.config.GetString(relayURLKey)),
			}
			if profile.Identity == "" {
				profile.Identity = domain.Identity(uuid.NewString())
			}

			if err := app.validate.Struct(profile); err != nil {
				return fmt.Errorf("invalid profile: %w", err)
			}

			app.config.Set(profileIdentityKey, string(profile.Identity))
			app.config.Set(profileNameKey, profile.Name)
			app.config.Set(relayURLKey, profile.RelayURL)
			if err := app.writeConfig(); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Profile %s (%s) saved to %s\n", profile.Name, profile.Identity, app.configPath)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name announced to other players")
	cmd.Flags().StringVar(&identity, "identity", "", "Identity to use instead of a generated one")
	cmd.Flags().StringVar(&relayURL, "relay", "", "Relay URL to connect to")

	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

package commands

import (
	"fmt"

	"github.com/fivetwenty-io/osclient/internal/constants"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// CloudInfo is one row of 'clouds list'.
type CloudInfo struct {
	Name             string `json:"name"                     yaml:"name"`
	IdentityEndpoint string `json:"identity_endpoint"        yaml:"identity_endpoint"`
	Region           string `json:"region"                   yaml:"region"`
	Interface        string `json:"interface,omitempty"      yaml:"interface,omitempty"`
	Token            string `json:"token,omitempty"          yaml:"token,omitempty"`
	Current          bool   `json:"current"                  yaml:"current"`
	TokenExpiresAt   string `json:"token_expires_at,omitempty" yaml:"token_expires_at,omitempty"`
}

// NewCloudsCommand creates the clouds command group.
func NewCloudsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "clouds",
		Aliases: []string{"cloud"},
		Short:   "Manage configured clouds",
		Long:    "Add, select, list and remove OpenStack clouds in the CLI configuration",
	}

	cmd.AddCommand(newCloudsAddCommand())
	cmd.AddCommand(newCloudsUseCommand())
	cmd.AddCommand(newCloudsListCommand())
	cmd.AddCommand(newCloudsRemoveCommand())

	return cmd
}

func newCloudsAddCommand() *cobra.Command {
	var cloud CloudConfig

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add or replace a cloud",
		Long:  "Store the identity endpoint, region and endpoint overrides of a cloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cloud.IdentityEndpoint == "" && cloud.CatalogFile == "" {
				return ErrIdentityEndpointRequired
			}

			config, err := loadConfig()
			if err != nil {
				return err
			}

			name := args[0]
			if existing, ok := config.Clouds[name]; ok && cloud.Token == "" {
				cloud.Token = existing.Token
				cloud.TokenExpiresAt = existing.TokenExpiresAt
			}

			config.Clouds[name] = &cloud
			if config.CurrentCloud == "" {
				config.CurrentCloud = name
			}

			err = saveConfig(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added cloud %s\n", name)

			return nil
		},
	}

	cmd.Flags().StringVar(&cloud.IdentityEndpoint, "identity-endpoint", "", "Keystone v3 URL, e.g. https://keystone:5000")
	cmd.Flags().StringVar(&cloud.Region, "region", "", "region used to resolve service endpoints")
	cmd.Flags().StringVar(&cloud.Interface, "interface", "", "endpoint interface (public, internal, admin)")
	cmd.Flags().StringVar(&cloud.CatalogFile, "catalog-file", "", "read the service catalog from this file")
	cmd.Flags().StringToStringVar(&cloud.Endpoints, "endpoint", nil, "override a service endpoint, e.g. network=https://neutron:9696")
	cmd.Flags().BoolVar(&cloud.SkipSSLValidation, "skip-ssl-validation", false, "skip SSL certificate validation for this cloud")

	return cmd
}

func newCloudsUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use NAME",
		Short: "Select the current cloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			name := args[0]
			if _, ok := config.Clouds[name]; !ok {
				return fmt.Errorf("%w: %s", constants.ErrCloudNotFound, name)
			}

			config.CurrentCloud = name

			err = saveConfig(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Using cloud %s\n", name)

			return nil
		},
	}
}

func newCloudsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured clouds",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			if len(config.Clouds) == 0 {
				return constants.ErrNoCloudsConfigured
			}

			clouds := make([]CloudInfo, 0, len(config.Clouds))

			for _, name := range config.cloudNames() {
				cloud := config.Clouds[name]
				info := CloudInfo{
					Name:             name,
					IdentityEndpoint: cloud.IdentityEndpoint,
					Region:           cloud.Region,
					Interface:        cloud.Interface,
					Token:            maskToken(cloud.Token),
					Current:          name == config.CurrentCloud,
				}

				if cloud.TokenExpiresAt != nil {
					info.TokenExpiresAt = cloud.TokenExpiresAt.Format("2006-01-02 15:04:05 MST")
				}

				clouds = append(clouds, info)
			}

			return render(cmd.OutOrStdout(), clouds, func(table *tablewriter.Table) error {
				table.Header("Current", "Name", "Identity Endpoint", "Region", "Token")

				for _, info := range clouds {
					current := ""
					if info.Current {
						current = constants.CheckMarkSymbol
					}

					err := table.Append([]string{current, info.Name, info.IdentityEndpoint, info.Region, info.Token})
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
		},
	}
}

func newCloudsRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "remove NAME",
		Aliases: []string{"rm"},
		Short:   "Remove a cloud",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig()
			if err != nil {
				return err
			}

			name := args[0]
			if _, ok := config.Clouds[name]; !ok {
				return fmt.Errorf("%w: %s", constants.ErrCloudNotFound, name)
			}

			delete(config.Clouds, name)

			if config.CurrentCloud == name {
				config.CurrentCloud = ""
			}

			err = saveConfig(config)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed cloud %s\n", name)

			return nil
		},
	}
}

// maskToken shows the first few characters of a token.
func maskToken(token string) string {
	if token == "" {
		return ""
	}

	if len(token) <= constants.TokenDisplayLength {
		return constants.MaskedSecret
	}

	return token[:constants.TokenDisplayLength] + constants.MaskedSecret
}

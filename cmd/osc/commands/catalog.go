package commands

import (
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// EndpointInfo is one row of 'catalog list'.
type EndpointInfo struct {
	Type      string `json:"type"      yaml:"type"`
	Name      string `json:"name"      yaml:"name"`
	Region    string `json:"region"    yaml:"region"`
	Interface string `json:"interface" yaml:"interface"`
	URL       string `json:"url"       yaml:"url"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the service catalog",
		Long:  "List the service catalog of the current cloud and resolve service endpoints",
	}

	cmd.AddCommand(newCatalogListCommand())
	cmd.AddCommand(newCatalogResolveCommand())

	return cmd
}

func newCatalogListCommand() *cobra.Command {
	var serviceType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(context.Background())
			if err != nil {
				return err
			}

			var endpoints []EndpointInfo

			for _, service := range client.Catalog().Services {
				if serviceType != "" && service.Type != serviceType {
					continue
				}

				for _, endpoint := range service.Endpoints {
					endpoints = append(endpoints, EndpointInfo{
						Type:      service.Type,
						Name:      service.Name,
						Region:    endpoint.Region,
						Interface: endpoint.Interface,
						URL:       endpoint.URL,
					})
				}
			}

			return render(cmd.OutOrStdout(), endpoints, func(table *tablewriter.Table) error {
				table.Header("Type", "Name", "Region", "Interface", "URL")

				for _, endpoint := range endpoints {
					err := table.Append([]string{endpoint.Type, endpoint.Name, endpoint.Region, endpoint.Interface, endpoint.URL})
					if err != nil {
						return fmt.Errorf("failed to append row: %w", err)
					}
				}

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&serviceType, "type", "", "only show services of this type")

	return cmd
}

func newCatalogResolveCommand() *cobra.Command {
	var serviceName string

	cmd := &cobra.Command{
		Use:   "resolve TYPE",
		Short: "Resolve the endpoint of a service type",
		Long:  "Print the URL the client uses for a service type in the cloud's region and interface",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := createClient(context.Background())
			if err != nil {
				return err
			}

			var endpoint string
			if serviceName != "" {
				endpoint, err = client.Resolver().Resolve(serviceName, args[0])
			} else {
				endpoint, err = client.Resolver().ResolveType(args[0])
			}

			if err != nil {
				return fmt.Errorf("%w: %w", ErrEndpointNotInCatalog, err)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), endpoint)

			return nil
		},
	}

	cmd.Flags().StringVar(&serviceName, "name", "", "service name, defaults to the first service of TYPE")

	return cmd
}

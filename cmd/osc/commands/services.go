package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var serviceFields = []string{"id", "name", "type", "enabled", "description"}

// NewServicesCommand creates the services command group.
func NewServicesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "services",
		Aliases: []string{"service"},
		Short:   "Manage identity services",
		Long:    "List and inspect services registered with Keystone",
	}

	cmd.AddCommand(newServicesListCommand())
	cmd.AddCommand(newServicesGetCommand())

	return cmd
}

func newServicesListCommand() *cobra.Command {
	var serviceType, serviceName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List services",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			identity, err := client.Identity()
			if err != nil {
				return err
			}

			opts := listOptions(cmd)
			if serviceType != "" {
				opts.WithFilter("type", serviceType)
			}

			if serviceName != "" {
				opts.WithFilter("name", serviceName)
			}

			services, err := collect(cmd, identity.ListServices(ctx, opts, nil))
			if err != nil {
				return fmt.Errorf("failed to list services: %w", err)
			}

			return renderResources(cmd.OutOrStdout(), services, serviceFields...)
		},
	}

	addListFlags(cmd)
	cmd.Flags().StringVar(&serviceType, "type", "", "filter by service type")
	cmd.Flags().StringVar(&serviceName, "name", "", "filter by service name")

	return cmd
}

func newServicesGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get SERVICE_ID",
		Short: "Get service details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			identity, err := client.Identity()
			if err != nil {
				return err
			}

			service := identity.GetService(args[0])

			err = service.Retrieve(ctx)
			if err != nil {
				return fmt.Errorf("failed to get service: %w", err)
			}

			return renderResource(cmd.OutOrStdout(), service, serviceFields...)
		},
	}
}

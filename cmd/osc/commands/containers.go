package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var containerFields = []string{"name", "objectCount", "bytesUsed", "lastModified"}

// NewContainersCommand creates the containers command group.
func NewContainersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "containers",
		Aliases: []string{"container"},
		Short:   "Manage object store containers",
		Long:    "List and inspect Swift containers of the current account",
	}

	cmd.AddCommand(newContainersListCommand())
	cmd.AddCommand(newContainersGetCommand())
	cmd.AddCommand(newContainersExistsCommand())

	return cmd
}

func newContainersListCommand() *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List containers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			objectStore, err := client.ObjectStore()
			if err != nil {
				return err
			}

			opts := listOptions(cmd)
			if prefix != "" {
				opts.WithPrefix(prefix)
			}

			containers, err := collect(cmd, objectStore.ListContainers(ctx, opts, nil))
			if err != nil {
				return fmt.Errorf("failed to list containers: %w", err)
			}

			return renderResources(cmd.OutOrStdout(), containers, containerFields...)
		},
	}

	addListFlags(cmd)
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list containers starting with this prefix")

	return cmd
}

func newContainersGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get NAME",
		Short: "Show container metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			objectStore, err := client.ObjectStore()
			if err != nil {
				return err
			}

			container := objectStore.GetContainer(args[0])

			err = container.Retrieve(ctx)
			if err != nil {
				return fmt.Errorf("failed to get container: %w", err)
			}

			return renderResource(cmd.OutOrStdout(), container, "name", "objectCount", "bytesUsed", "readAccess", "writeAccess")
		},
	}
}

func newContainersExistsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exists NAME",
		Short: "Check whether a container exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			client, err := createClient(ctx)
			if err != nil {
				return err
			}

			objectStore, err := client.ObjectStore()
			if err != nil {
				return err
			}

			exists, err := objectStore.ContainerExists(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to check container: %w", err)
			}

			if exists {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Container %s exists\n", args[0])
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Container %s does not exist\n", args[0])
			}

			return nil
		},
	}
}

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/fivetwenty-io/osclient/internal/constants"
	"github.com/fivetwenty-io/osclient/pkg/openstack"
	"github.com/spf13/cobra"
)

var (
	loadBalancerListFields = []string{"id", "name", "vipAddress", "provisioningStatus", "operatingStatus"}
	loadBalancerFields     = []string{
		"id", "name", "description", "tenantId", "vipAddress", "vipSubnetId",
		"adminStateUp", "provisioningStatus", "operatingStatus", "listeners",
	}
	loadBalancerStatFields = []string{"bytesIn", "bytesOut", "activeConnections", "totalConnections"}
)

// NewLoadBalancersCommand creates the loadbalancers command group.
func NewLoadBalancersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "loadbalancers",
		Aliases: []string{"loadbalancer", "lb"},
		Short:   "Manage load balancers",
		Long:    "List and inspect LBaaS v2 load balancers",
	}

	cmd.AddCommand(newLoadBalancersListCommand())
	cmd.AddCommand(newLoadBalancersGetCommand())
	cmd.AddCommand(newLoadBalancersStatsCommand())
	cmd.AddCommand(newLoadBalancersWaitCommand())

	return cmd
}

func newLoadBalancersListCommand() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List load balancers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			networking, err := networkingClient(ctx)
			if err != nil {
				return err
			}

			opts := listOptions(cmd)
			if status != "" {
				opts.WithFilter("provisioning_status", status)
			}

			loadBalancers, err := collect(cmd, networking.ListLoadBalancers(ctx, opts, nil))
			if err != nil {
				return fmt.Errorf("failed to list load balancers: %w", err)
			}

			return renderResources(cmd.OutOrStdout(), loadBalancers, loadBalancerListFields...)
		},
	}

	addListFlags(cmd)
	cmd.Flags().StringVar(&status, "status", "", "filter by provisioning status")

	return cmd
}

func newLoadBalancersGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get LOADBALANCER_ID",
		Short: "Get load balancer details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			networking, err := networkingClient(ctx)
			if err != nil {
				return err
			}

			lb := networking.GetLoadBalancer(args[0])

			err = lb.Retrieve(ctx)
			if err != nil {
				return fmt.Errorf("failed to get load balancer: %w", err)
			}

			return renderResource(cmd.OutOrStdout(), lb.Resource, loadBalancerFields...)
		},
	}
}

func newLoadBalancersStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats LOADBALANCER_ID",
		Short: "Show load balancer traffic statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			networking, err := networkingClient(ctx)
			if err != nil {
				return err
			}

			stats, err := networking.GetLoadBalancer(args[0]).GetStats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get load balancer stats: %w", err)
			}

			return renderResource(cmd.OutOrStdout(), stats, loadBalancerStatFields...)
		},
	}
}

func newLoadBalancersWaitCommand() *cobra.Command {
	var interval, timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait LOADBALANCER_ID",
		Short: "Wait until a load balancer is ACTIVE",
		Long:  "Poll the provisioning status of a load balancer until it is ACTIVE or ERROR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			networking, err := networkingClient(ctx)
			if err != nil {
				return err
			}

			lb := networking.GetLoadBalancer(args[0])

			err = lb.WaitForActive(ctx, interval, timeout)
			if err != nil {
				return err
			}

			return renderResource(cmd.OutOrStdout(), lb.Resource, loadBalancerListFields...)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", constants.DefaultPollInterval, "time between status checks")
	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultPollTimeout, "give up after this long")

	return cmd
}

func networkingClient(ctx context.Context) (*openstack.NetworkingClient, error) {
	client, err := createClient(ctx)
	if err != nil {
		return nil, err
	}

	return client.Networking()
}

package client

import (
	"context"

	"github.com/fivetwenty-io/osclient/pkg/osapi"
)

const (
	loadBalancersPath = "/v2.0/lbaas/loadbalancers"
	listenersPath     = "/v2.0/lbaas/listeners"
)

var idParam = map[string]osapi.Param{"id": {Location: osapi.ParamURL}}

var listenerBodyParams = map[string]osapi.Param{
	"name":            {Location: osapi.ParamJSON},
	"description":     {Location: osapi.ParamJSON},
	"adminStateUp":    {Location: osapi.ParamJSON, SentAs: "admin_state_up"},
	"connectionLimit": {Location: osapi.ParamJSON, SentAs: "connection_limit"},
	"defaultPoolId":   {Location: osapi.ParamJSON, SentAs: "default_pool_id"},
}

// ListenerKind is an LBaaS v2 listener.
var ListenerKind = &osapi.ResourceKind{
	Name: "listener",
	Aliases: osapi.MustAliasTable(
		osapi.Alias{Remote: "id"},
		osapi.Alias{Remote: "name"},
		osapi.Alias{Remote: "description"},
		osapi.Alias{Remote: "protocol"},
		osapi.Alias{Remote: "protocol_port", Local: "protocolPort"},
		osapi.Alias{Remote: "admin_state_up", Local: "adminStateUp"},
		osapi.Alias{Remote: "connection_limit", Local: "connectionLimit"},
		osapi.Alias{Remote: "default_pool_id", Local: "defaultPoolId"},
		osapi.Alias{Remote: "tenant_id", Local: "tenantId"},
		osapi.Alias{Remote: "loadbalancers", Kind: osapi.AliasStructure},
	),
	Identity:     []string{"id"},
	Capabilities: osapi.CapCreate | osapi.CapRetrieve | osapi.CapUpdate | osapi.CapDelete | osapi.CapList,
	Operations: map[osapi.Capability]*osapi.Operation{
		osapi.CapCreate: {
			Name:   "postListener",
			Method: osapi.MethodPost,
			Path:   listenersPath,
			Params: withParams(listenerBodyParams, map[string]osapi.Param{
				"loadbalancerId": {Location: osapi.ParamJSON, SentAs: "loadbalancer_id", Required: true},
				"protocol":       {Location: osapi.ParamJSON, Required: true},
				"protocolPort":   {Location: osapi.ParamJSON, SentAs: "protocol_port", Required: true},
			}),
			JSONKey:     "listener",
			ResponseKey: "listener",
		},
		osapi.CapRetrieve: {
			Name: "getListener", Method: osapi.MethodGet, Path: listenersPath + "/{id}",
			Params: idParam, ResponseKey: "listener",
		},
		osapi.CapUpdate: {
			Name: "putListener", Method: osapi.MethodPut, Path: listenersPath + "/{id}",
			Params:  withParams(listenerBodyParams, idParam),
			JSONKey: "listener", ResponseKey: "listener",
		},
		osapi.CapDelete: {
			Name: "deleteListener", Method: osapi.MethodDelete, Path: listenersPath + "/{id}",
			Params: idParam,
		},
		osapi.CapList: {
			Name: "getListeners", Method: osapi.MethodGet, Path: listenersPath,
			Params: map[string]osapi.Param{
				"limit":  {Location: osapi.ParamQuery},
				"marker": {Location: osapi.ParamQuery},
				"name":   {Location: osapi.ParamQuery},
			},
			ResponsesKey: "listeners",
			LinksKey:     "listeners_links",
		},
	},
	Mutable: []string{"name", "description", "adminStateUp", "connectionLimit", "defaultPoolId"},
}

var loadBalancerBodyParams = map[string]osapi.Param{
	"name":         {Location: osapi.ParamJSON},
	"description":  {Location: osapi.ParamJSON},
	"adminStateUp": {Location: osapi.ParamJSON, SentAs: "admin_state_up"},
}

// LoadBalancerKind is an LBaaS v2 load balancer.
var LoadBalancerKind = &osapi.ResourceKind{
	Name: "loadbalancer",
	Aliases: osapi.MustAliasTable(
		osapi.Alias{Remote: "id"},
		osapi.Alias{Remote: "name"},
		osapi.Alias{Remote: "description"},
		osapi.Alias{Remote: "tenant_id", Local: "tenantId"},
		osapi.Alias{Remote: "admin_state_up", Local: "adminStateUp"},
		osapi.Alias{Remote: "vip_address", Local: "vipAddress"},
		osapi.Alias{Remote: "vip_subnet_id", Local: "vipSubnetId"},
		osapi.Alias{Remote: "operating_status", Local: "operatingStatus"},
		osapi.Alias{Remote: "provisioning_status", Local: "provisioningStatus"},
		osapi.Alias{Remote: "listeners", Kind: osapi.AliasCollection, Resource: ListenerKind},
	),
	Identity:     []string{"id"},
	Capabilities: osapi.CapCreate | osapi.CapRetrieve | osapi.CapUpdate | osapi.CapDelete | osapi.CapList,
	Operations: map[osapi.Capability]*osapi.Operation{
		osapi.CapCreate: {
			Name:   "postLoadBalancer",
			Method: osapi.MethodPost,
			Path:   loadBalancersPath,
			Params: withParams(loadBalancerBodyParams, map[string]osapi.Param{
				"tenantId":    {Location: osapi.ParamJSON, SentAs: "tenant_id"},
				"vipAddress":  {Location: osapi.ParamJSON, SentAs: "vip_address"},
				"vipSubnetId": {Location: osapi.ParamJSON, SentAs: "vip_subnet_id", Required: true},
			}),
			JSONKey:     "loadbalancer",
			ResponseKey: "loadbalancer",
		},
		osapi.CapRetrieve: {
			Name: "getLoadBalancer", Method: osapi.MethodGet, Path: loadBalancersPath + "/{id}",
			Params: idParam, ResponseKey: "loadbalancer",
		},
		osapi.CapUpdate: {
			Name: "putLoadBalancer", Method: osapi.MethodPut, Path: loadBalancersPath + "/{id}",
			Params:  withParams(loadBalancerBodyParams, idParam),
			JSONKey: "loadbalancer", ResponseKey: "loadbalancer",
		},
		osapi.CapDelete: {
			Name: "deleteLoadBalancer", Method: osapi.MethodDelete, Path: loadBalancersPath + "/{id}",
			Params: idParam,
		},
		osapi.CapList: {
			Name: "getLoadBalancers", Method: osapi.MethodGet, Path: loadBalancersPath,
			Params: map[string]osapi.Param{
				"limit":               {Location: osapi.ParamQuery},
				"marker":              {Location: osapi.ParamQuery},
				"name":                {Location: osapi.ParamQuery},
				"provisioning_status": {Location: osapi.ParamQuery},
				"sort_key":            {Location: osapi.ParamQuery},
				"sort_dir":            {Location: osapi.ParamQuery},
			},
			ResponsesKey: "loadbalancers",
			LinksKey:     "loadbalancers_links",
		},
	},
	Mutable: []string{"name", "description", "adminStateUp"},
}

var loadBalancerIDParam = map[string]osapi.Param{"loadbalancerId": {Location: osapi.ParamURL}}

// LoadBalancerStatKind holds the traffic counters of a load balancer.
var LoadBalancerStatKind = &osapi.ResourceKind{
	Name: "loadbalancer stats",
	Aliases: osapi.MustAliasTable(
		osapi.Alias{Remote: "bytes_in", Local: "bytesIn"},
		osapi.Alias{Remote: "bytes_out", Local: "bytesOut"},
		osapi.Alias{Remote: "active_connections", Local: "activeConnections"},
		osapi.Alias{Remote: "total_connections", Local: "totalConnections"},
	),
	Identity:     []string{"loadbalancerId"},
	Capabilities: osapi.CapRetrieve,
	Operations: map[osapi.Capability]*osapi.Operation{
		osapi.CapRetrieve: {
			Name: "getLoadBalancerStats", Method: osapi.MethodGet, Path: loadBalancersPath + "/{loadbalancerId}/stats",
			Params: loadBalancerIDParam, ResponseKey: "stats",
		},
	},
}

// LoadBalancerStatusKind holds the status tree of a load balancer and its
// children as an opaque structure.
var LoadBalancerStatusKind = &osapi.ResourceKind{
	Name: "loadbalancer statuses",
	Aliases: osapi.MustAliasTable(
		osapi.Alias{Remote: "loadbalancer", Kind: osapi.AliasStructure},
	),
	Identity:     []string{"loadbalancerId"},
	Capabilities: osapi.CapRetrieve,
	Operations: map[osapi.Capability]*osapi.Operation{
		osapi.CapRetrieve: {
			Name: "getLoadBalancerStatuses", Method: osapi.MethodGet, Path: loadBalancersPath + "/{loadbalancerId}/statuses",
			Params: loadBalancerIDParam, ResponseKey: "statuses",
		},
	},
}

// NetworkingClient is the Neutron v2 facade.
type NetworkingClient struct {
	exec *osapi.Executor
}

// NewNetworkingClient creates a facade issuing requests through exec.
func NewNetworkingClient(exec *osapi.Executor) *NetworkingClient {
	return &NetworkingClient{exec: exec}
}

// LoadBalancer is a load balancer resource with its related operations.
type LoadBalancer struct {
	*osapi.Resource
}

// CreateLoadBalancer creates a load balancer. params needs "vipSubnetId".
func (c *NetworkingClient) CreateLoadBalancer(ctx context.Context, params osapi.Params) (*LoadBalancer, error) {
	res, err := LoadBalancerKind.New(c.exec, nil).Create(ctx, params)
	if err != nil {
		return nil, err
	}

	return &LoadBalancer{Resource: res}, nil
}

// GetLoadBalancer returns a load balancer handle without contacting the API.
func (c *NetworkingClient) GetLoadBalancer(id string) *LoadBalancer {
	return &LoadBalancer{Resource: LoadBalancerKind.New(c.exec, osapi.Attributes{"id": id})}
}

// ListLoadBalancers streams load balancers.
func (c *NetworkingClient) ListLoadBalancers(ctx context.Context, opts *osapi.ListOptions, transform osapi.Transform) *osapi.Iterator {
	return LoadBalancerKind.Enumerate(ctx, c.exec, opts.ToParams(), transform)
}

// GetListener returns a listener handle without contacting the API.
func (c *NetworkingClient) GetListener(id string) *osapi.Resource {
	return ListenerKind.New(c.exec, osapi.Attributes{"id": id})
}

// ListListeners streams listeners.
func (c *NetworkingClient) ListListeners(ctx context.Context, opts *osapi.ListOptions, transform osapi.Transform) *osapi.Iterator {
	return ListenerKind.Enumerate(ctx, c.exec, opts.ToParams(), transform)
}

// AddListener creates a listener attached to this load balancer. A
// "loadbalancerId" in params takes precedence.
func (lb *LoadBalancer) AddListener(ctx context.Context, params osapi.Params) (*osapi.Resource, error) {
	params = osapi.Params{"loadbalancerId": lb.ID()}.Merge(params)

	return lb.Model(ListenerKind, nil).Create(ctx, params)
}

// GetStats retrieves the traffic counters of this load balancer.
func (lb *LoadBalancer) GetStats(ctx context.Context) (*osapi.Resource, error) {
	stats := lb.Model(LoadBalancerStatKind, osapi.Attributes{"loadbalancerId": lb.ID()})

	err := stats.Retrieve(ctx)
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// GetStatuses retrieves the status tree of this load balancer.
func (lb *LoadBalancer) GetStatuses(ctx context.Context) (*osapi.Resource, error) {
	statuses := lb.Model(LoadBalancerStatusKind, osapi.Attributes{"loadbalancerId": lb.ID()})

	err := statuses.Retrieve(ctx)
	if err != nil {
		return nil, err
	}

	return statuses, nil
}

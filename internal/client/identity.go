package client

import (
	"context"

	"github.com/fivetwenty-io/osclient/pkg/osapi"
)

// EndpointKind is a Keystone v3 endpoint as embedded in services.
var EndpointKind = &osapi.ResourceKind{
	Name: "endpoint",
	Aliases: osapi.MustAliasTable(
		osapi.Alias{Remote: "id"},
		osapi.Alias{Remote: "interface"},
		osapi.Alias{Remote: "region"},
		osapi.Alias{Remote: "region_id", Local: "regionId"},
		osapi.Alias{Remote: "url"},
		osapi.Alias{Remote: "service_id", Local: "serviceId"},
		osapi.Alias{Remote: "enabled"},
	),
	Identity: []string{"id"},
}

var serviceBodyParams = map[string]osapi.Param{
	"name":        {Location: osapi.ParamJSON},
	"description": {Location: osapi.ParamJSON},
	"enabled":     {Location: osapi.ParamJSON},
}

// ServiceKind is a Keystone v3 service.
var ServiceKind = &osapi.ResourceKind{
	Name: "service",
	Aliases: osapi.MustAliasTable(
		osapi.Alias{Remote: "id"},
		osapi.Alias{Remote: "name"},
		osapi.Alias{Remote: "type"},
		osapi.Alias{Remote: "description"},
		osapi.Alias{Remote: "enabled"},
		osapi.Alias{Remote: "links", Kind: osapi.AliasStructure},
		osapi.Alias{Remote: "endpoints", Kind: osapi.AliasCollection, Resource: EndpointKind},
	),
	Identity:     []string{"id"},
	Capabilities: osapi.CapCreate | osapi.CapRetrieve | osapi.CapUpdate | osapi.CapDelete | osapi.CapList,
	Operations: map[osapi.Capability]*osapi.Operation{
		osapi.CapCreate: {
			Name:        "postServices",
			Method:      osapi.MethodPost,
			Path:        "/services",
			Params:      withParams(serviceBodyParams, map[string]osapi.Param{"type": {Location: osapi.ParamJSON, Required: true}}),
			JSONKey:     "service",
			ResponseKey: "service",
		},
		osapi.CapList: {
			Name:   "getServices",
			Method: osapi.MethodGet,
			Path:   "/services",
			Params: map[string]osapi.Param{
				"type": {Location: osapi.ParamQuery},
				"name": {Location: osapi.ParamQuery},
			},
			ResponsesKey: "services",
			LinksKey:     "links",
		},
		osapi.CapRetrieve: {
			Name:        "getService",
			Method:      osapi.MethodGet,
			Path:        "/services/{id}",
			Params:      map[string]osapi.Param{"id": {Location: osapi.ParamURL}},
			ResponseKey: "service",
		},
		osapi.CapUpdate: {
			Name:   "patchService",
			Method: osapi.MethodPatch,
			Path:   "/services/{id}",
			Params: withParams(serviceBodyParams, map[string]osapi.Param{
				"id":   {Location: osapi.ParamURL},
				"type": {Location: osapi.ParamJSON},
			}),
			JSONKey:     "service",
			ResponseKey: "service",
		},
		osapi.CapDelete: {
			Name:   "deleteService",
			Method: osapi.MethodDelete,
			Path:   "/services/{id}",
			Params: map[string]osapi.Param{"id": {Location: osapi.ParamURL}},
		},
	},
	Mutable: []string{"name", "type", "description", "enabled"},
}

// withParams merges parameter sets into a new map.
func withParams(sets ...map[string]osapi.Param) map[string]osapi.Param {
	out := map[string]osapi.Param{}

	for _, set := range sets {
		for name, param := range set {
			out[name] = param
		}
	}

	return out
}

// IdentityClient is the Keystone v3 facade.
type IdentityClient struct {
	exec *osapi.Executor
}

// NewIdentityClient creates a facade issuing requests through exec, whose
// base URL includes the /v3 prefix.
func NewIdentityClient(exec *osapi.Executor) *IdentityClient {
	return &IdentityClient{exec: exec}
}

// CreateService registers a service. params needs at least "type".
func (c *IdentityClient) CreateService(ctx context.Context, params osapi.Params) (*osapi.Resource, error) {
	return ServiceKind.New(c.exec, nil).Create(ctx, params)
}

// GetService returns a service handle without contacting the API. Call
// Retrieve to load it.
func (c *IdentityClient) GetService(id string) *osapi.Resource {
	return ServiceKind.New(c.exec, osapi.Attributes{"id": id})
}

// ListServices streams services, optionally filtered by "type" or "name".
func (c *IdentityClient) ListServices(ctx context.Context, opts *osapi.ListOptions, transform osapi.Transform) *osapi.Iterator {
	return ServiceKind.Enumerate(ctx, c.exec, opts.ToParams(), transform)
}

// ServiceURL returns the URL of the endpoint of a populated service matching
// region and iface, provided the service itself matches name and typ.
func (c *IdentityClient) ServiceURL(service *osapi.Resource, name, typ, region, iface string) (string, bool) {
	entry := osapi.CatalogService{
		ID:   service.ID(),
		Name: service.String("name"),
		Type: service.String("type"),
	}

	for _, endpoint := range service.Resources("endpoints") {
		entry.Endpoints = append(entry.Endpoints, osapi.CatalogEndpoint{
			ID:        endpoint.ID(),
			Region:    endpoint.String("region"),
			RegionID:  endpoint.String("regionId"),
			Interface: endpoint.String("interface"),
			URL:       endpoint.String("url"),
		})
	}

	return entry.URL(name, typ, region, iface)
}

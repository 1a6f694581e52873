package client

import (
	"context"

	"github.com/fivetwenty-io/osclient/pkg/osapi"
)

var containerNameParam = map[string]osapi.Param{"name": {Location: osapi.ParamURL}}

var containerACLParams = map[string]osapi.Param{
	"readAccess":  {Location: osapi.ParamHeader, SentAs: "X-Container-Read"},
	"writeAccess": {Location: osapi.ParamHeader, SentAs: "X-Container-Write"},
}

// ContainerKind is a Swift container. Listings carry name, count and bytes
// in the body; HEAD reports the same counters as headers.
var ContainerKind = &osapi.ResourceKind{
	Name: "container",
	// Header aliases come first so the body names win for RemoteName.
	Aliases: osapi.MustAliasTable(
		osapi.Alias{Remote: "X-Container-Object-Count", Local: "objectCount", Header: true},
		osapi.Alias{Remote: "X-Container-Bytes-Used", Local: "bytesUsed", Header: true},
		osapi.Alias{Remote: "X-Container-Read", Local: "readAccess", Header: true},
		osapi.Alias{Remote: "X-Container-Write", Local: "writeAccess", Header: true},
		osapi.Alias{Remote: "name"},
		osapi.Alias{Remote: "count", Local: "objectCount"},
		osapi.Alias{Remote: "bytes", Local: "bytesUsed"},
		osapi.Alias{Remote: "last_modified", Local: "lastModified"},
	),
	Identity:     []string{"name"},
	Capabilities: osapi.CapCreate | osapi.CapRetrieve | osapi.CapUpdate | osapi.CapDelete | osapi.CapList,
	Operations: map[osapi.Capability]*osapi.Operation{
		osapi.CapCreate: {
			Name: "putContainer", Method: osapi.MethodPut, Path: "/{name}",
			Params: withParams(containerNameParam, containerACLParams),
		},
		osapi.CapRetrieve: {
			Name: "headContainer", Method: osapi.MethodHead, Path: "/{name}",
			Params: containerNameParam,
		},
		osapi.CapUpdate: {
			Name: "postContainer", Method: osapi.MethodPost, Path: "/{name}",
			Params: withParams(containerNameParam, containerACLParams),
		},
		osapi.CapDelete: {
			Name: "deleteContainer", Method: osapi.MethodDelete, Path: "/{name}",
			Params: containerNameParam,
		},
		osapi.CapList: {
			Name:   "getAccount",
			Method: osapi.MethodGet,
			Path:   "",
			Params: map[string]osapi.Param{
				"format":     {Location: osapi.ParamQuery},
				"limit":      {Location: osapi.ParamQuery},
				"marker":     {Location: osapi.ParamQuery},
				"end_marker": {Location: osapi.ParamQuery},
				"prefix":     {Location: osapi.ParamQuery},
			},
			MarkerKey: "name",
		},
	},
	Mutable: []string{"readAccess", "writeAccess"},
}

// ObjectStoreClient is the Swift v1 facade. Its executor targets the account
// URL from the catalog.
type ObjectStoreClient struct {
	exec *osapi.Executor
}

// NewObjectStoreClient creates a facade issuing requests through exec.
func NewObjectStoreClient(exec *osapi.Executor) *ObjectStoreClient {
	return &ObjectStoreClient{exec: exec}
}

// ListContainers streams the containers of the account. The listing is
// always requested as JSON and paged by container name.
func (c *ObjectStoreClient) ListContainers(ctx context.Context, opts *osapi.ListOptions, mapFn osapi.Transform) *osapi.Iterator {
	params := opts.ToParams().Merge(osapi.Params{"format": "json"})

	return ContainerKind.Enumerate(ctx, c.exec, params, mapFn)
}

// GetContainer returns a container handle without contacting the API.
func (c *ObjectStoreClient) GetContainer(name string) *osapi.Resource {
	return ContainerKind.New(c.exec, osapi.Attributes{"name": name})
}

// CreateContainer creates the container named by params["name"].
func (c *ObjectStoreClient) CreateContainer(ctx context.Context, params osapi.Params) (*osapi.Resource, error) {
	name, _ := params["name"].(string)

	return c.GetContainer(name).Create(ctx, params)
}

// ContainerExists probes a container with HEAD. A 404 means false; any other
// failure is returned.
func (c *ObjectStoreClient) ContainerExists(ctx context.Context, name string) (bool, error) {
	op, err := ContainerKind.Operation(osapi.CapRetrieve)
	if err != nil {
		return false, err
	}

	_, err = c.exec.Execute(ctx, op, osapi.Params{"name": name})

	return osapi.Exists(err)
}

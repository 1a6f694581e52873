package osapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/fivetwenty-io/osclient/pkg/osapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_RetrieveLoadBalancer(t *testing.T) {
	t.Parallel()

	kind := &osapi.ResourceKind{
		Name: "loadbalancer",
		Aliases: osapi.MustAliasTable(
			osapi.Alias{Remote: "id"},
			osapi.Alias{Remote: "admin_state_up", Local: "adminStateUp"},
		),
		Identity:     []string{"id"},
		Capabilities: osapi.CapRetrieve,
		Operations: map[osapi.Capability]*osapi.Operation{
			osapi.CapRetrieve: {
				Name:        "getLoadBalancer",
				Method:      osapi.MethodGet,
				Path:        lbPath + "/{id}",
				Params:      map[string]osapi.Param{"id": {Location: osapi.ParamURL}},
				ResponseKey: "loadbalancer",
			},
		},
	}

	transport := replying(http.StatusOK, `{"loadbalancer":{"admin_state_up":true,"id":"svc-1"}}`)
	exec := osapi.NewExecutor(transport, neutronURL)

	lb := kind.New(exec, osapi.Attributes{"id": "svc-1"})
	require.NoError(t, lb.Retrieve(context.Background()))

	assert.True(t, lb.Bool("adminStateUp"))
	assert.Equal(t, "svc-1", lb.ID())
	require.Equal(t, 1, transport.Calls())
	assert.Equal(t, http.MethodGet, transport.Last().Method)
	assert.Equal(t, lbPath+"/svc-1", transport.Last().path(t))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestResource_Preconditions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name  string
		kind  func() *osapi.ResourceKind
		attrs osapi.Attributes
		call  func(*osapi.Resource) error
		want  error
	}{
		{
			name:  "retrieve without identity",
			kind:  newLoadBalancerKind,
			attrs: osapi.Attributes{"name": "web"},
			call:  func(r *osapi.Resource) error { return r.Retrieve(ctx) },
			want:  osapi.ErrMissingIdentity,
		},
		{
			name:  "update with blank identity",
			kind:  newLoadBalancerKind,
			attrs: osapi.Attributes{"id": ""},
			call:  func(r *osapi.Resource) error { return r.Update(ctx) },
			want:  osapi.ErrMissingIdentity,
		},
		{
			name:  "delete without identity",
			kind:  newLoadBalancerKind,
			attrs: osapi.Attributes{},
			call:  func(r *osapi.Resource) error { return r.Delete(ctx) },
			want:  osapi.ErrMissingIdentity,
		},
		{
			name: "unsupported capability",
			kind: func() *osapi.ResourceKind {
				kind := newLoadBalancerKind()
				kind.Capabilities = osapi.CapRetrieve

				return kind
			},
			attrs: osapi.Attributes{"id": "lb-1"},
			call:  func(r *osapi.Resource) error { return r.Delete(ctx) },
			want:  osapi.ErrUnsupportedCapability,
		},
		{
			name: "capability without operation",
			kind: func() *osapi.ResourceKind {
				kind := newLoadBalancerKind()
				delete(kind.Operations, osapi.CapUpdate)

				return kind
			},
			attrs: osapi.Attributes{"id": "lb-1"},
			call:  func(r *osapi.Resource) error { return r.Update(ctx) },
			want:  osapi.ErrNoOperation,
		},
		{
			name:  "create without required parameter",
			kind:  newLoadBalancerKind,
			attrs: osapi.Attributes{},
			call: func(r *osapi.Resource) error {
				_, err := r.Create(ctx, osapi.Params{"name": "web"})

				return err
			},
			want: osapi.ErrMissingParameter,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			transport := replying(http.StatusOK, `{}`)
			res := testCase.kind().New(osapi.NewExecutor(transport, neutronURL), testCase.attrs)

			err := testCase.call(res)
			require.ErrorIs(t, err, testCase.want)
			assert.True(t, osapi.IsPrecondition(err))
			assert.Zero(t, transport.Calls(), "no request may be sent")
		})
	}
}

func TestResource_FailureLeavesAttributesUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("remote error", func(t *testing.T) {
		t.Parallel()

		transport := replying(http.StatusInternalServerError, `{"NeutronError":{"message":"boom"}}`)
		lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{"id": "lb-1", "name": "web"})
		before := lb.Attributes()

		err := lb.Retrieve(ctx)
		require.Error(t, err)

		code, ok := osapi.StatusCode(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.Equal(t, before, lb.Attributes())
	})

	t.Run("malformed nested collection", func(t *testing.T) {
		t.Parallel()

		transport := replying(http.StatusOK, `{"loadbalancer":{"id":"lb-1","name":"renamed","listeners":"oops"}}`)
		lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{"id": "lb-1", "name": "web"})

		err := lb.Retrieve(ctx)
		require.ErrorIs(t, err, osapi.ErrUnexpectedBody)
		assert.Equal(t, "web", lb.String("name"))
	})
}

func TestResource_RetrieveOverwritesPresentKeysOnly(t *testing.T) {
	t.Parallel()

	transport := replying(http.StatusOK, `{"loadbalancer":{"id":"lb-1","provisioning_status":"ACTIVE","unknown_field":42}}`)
	lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{
		"id":                 "lb-1",
		"name":               "web",
		"provisioningStatus": "PENDING_CREATE",
	})

	require.NoError(t, lb.Retrieve(context.Background()))

	assert.Equal(t, "web", lb.String("name"))
	assert.Equal(t, "ACTIVE", lb.String("provisioningStatus"))

	_, ok := lb.Get("unknown_field")
	assert.False(t, ok)
}

func TestResource_NestedCollectionsAreIdempotent(t *testing.T) {
	t.Parallel()

	body := `{"loadbalancer":{
		"id":"lb-1",
		"listeners":[{"id":"l-1","protocol":"HTTP","protocol_port":80},{"id":"l-2","protocol":"HTTPS","protocol_port":443}],
		"pool":{"id":"p-1"},
		"tags":["a","b"]
	}}`

	transport := replying(http.StatusOK, body)
	lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{"id": "lb-1"})

	for range 2 {
		require.NoError(t, lb.Retrieve(context.Background()))
	}

	listeners := lb.Resources("listeners")
	require.Len(t, listeners, 2)
	assert.Equal(t, "l-1", listeners[0].ID())
	assert.Equal(t, int64(80), listeners[0].Int("protocolPort"))
	assert.Equal(t, "HTTPS", listeners[1].String("protocol"))
	assert.Same(t, listenerKind, listeners[0].Kind())

	require.NotNil(t, lb.Nested("pool"))
	assert.Equal(t, "p-1", lb.Nested("pool").ID())

	tags, ok := lb.Get("tags")
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, tags)
}

func TestResource_MarshalJSON(t *testing.T) {
	t.Parallel()

	transport := replying(http.StatusOK, `{"loadbalancer":{"id":"lb-1","admin_state_up":true,"listeners":[{"id":"l-1"}]}}`)
	lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{"id": "lb-1"})
	require.NoError(t, lb.Retrieve(context.Background()))

	data, err := json.Marshal(lb)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"lb-1","adminStateUp":true,"listeners":[{"id":"l-1"}]}`, string(data))
}

func TestResource_Create(t *testing.T) {
	t.Parallel()

	transport := replying(http.StatusCreated, `{"loadbalancer":{"id":"lb-9","name":"web","admin_state_up":true,"vip_subnet_id":"sub-1"}}`)
	lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), nil)

	created, err := lb.Create(context.Background(), osapi.Params{
		"name":         "web",
		"adminStateUp": true,
		"vipSubnetId":  "sub-1",
		"ignored":      "not declared",
	})
	require.NoError(t, err)
	assert.Same(t, lb, created)
	assert.Equal(t, "lb-9", lb.ID())
	assert.True(t, lb.HasIdentity())

	call := transport.Last()
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, lbPath, call.path(t))
	assert.Equal(t, map[string]any{
		"loadbalancer": map[string]any{
			"name":           "web",
			"admin_state_up": true,
			"vip_subnet_id":  "sub-1",
		},
	}, call.jsonBody(t))
}

func TestResource_UpdateSendsMutableAttributes(t *testing.T) {
	t.Parallel()

	transport := replying(http.StatusOK, `{"loadbalancer":{"id":"lb-1","name":"renamed","admin_state_up":false}}`)
	lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{
		"id":                 "lb-1",
		"name":               "renamed",
		"adminStateUp":       false,
		"provisioningStatus": "ACTIVE",
	})

	require.NoError(t, lb.Update(context.Background()))

	call := transport.Last()
	assert.Equal(t, http.MethodPut, call.Method)
	assert.Equal(t, lbPath+"/lb-1", call.path(t))
	assert.Equal(t, map[string]any{
		"loadbalancer": map[string]any{"name": "renamed", "admin_state_up": false},
	}, call.jsonBody(t))
	assert.False(t, lb.Bool("adminStateUp"))
}

func TestResource_Delete(t *testing.T) {
	t.Parallel()

	transport := replying(http.StatusNoContent, "")
	lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{"id": "lb 1/x"})
	before := lb.Attributes()

	require.NoError(t, lb.Delete(context.Background()))

	call := transport.Last()
	assert.Equal(t, http.MethodDelete, call.Method)
	assert.Equal(t, lbPath+"/lb%201%2Fx", call.path(t))
	assert.Empty(t, call.Body)
	assert.Equal(t, before, lb.Attributes())
}

func TestResource_HeaderAliases(t *testing.T) {
	t.Parallel()

	kind := &osapi.ResourceKind{
		Name: "container",
		Aliases: osapi.MustAliasTable(
			osapi.Alias{Remote: "name"},
			osapi.Alias{Remote: "X-Container-Object-Count", Local: "objectCount", Header: true},
			osapi.Alias{Remote: "x-container-read", Local: "readACL", Header: true},
		),
		Identity:     []string{"name"},
		Capabilities: osapi.CapRetrieve,
		Operations: map[osapi.Capability]*osapi.Operation{
			osapi.CapRetrieve: {
				Name:   "headContainer",
				Method: osapi.MethodHead,
				Path:   "/{name}",
				Params: map[string]osapi.Param{"name": {Location: osapi.ParamURL}},
			},
		},
	}

	transport := newFakeTransport(func(recordedCall) (*osapi.TransportResponse, error) {
		header := http.Header{}
		header.Set("X-Container-Object-Count", "12")
		header.Set("X-Container-Read", ".r:*")

		return &osapi.TransportResponse{StatusCode: http.StatusNoContent, Header: header}, nil
	})

	container := kind.New(osapi.NewExecutor(transport, "https://swift.example.com/v1/AUTH_demo"), osapi.Attributes{"name": "photos"})
	require.NoError(t, container.Retrieve(context.Background()))

	assert.Equal(t, int64(12), container.Int("objectCount"))
	assert.Equal(t, ".r:*", container.String("readACL"))
	assert.Equal(t, http.MethodHead, transport.Last().Method)
}

func TestResource_ModelSharesExecutor(t *testing.T) {
	t.Parallel()

	transport := replying(http.StatusOK, `{"loadbalancer":{"id":"lb-2","name":"child"}}`)
	parent := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{"id": "lb-1"})

	child := parent.Model(parent.Kind(), osapi.Attributes{"id": "lb-2"})
	require.NoError(t, child.Retrieve(context.Background()))

	assert.Equal(t, "child", child.String("name"))
	assert.Equal(t, 1, transport.Calls())
	assert.Empty(t, parent.String("name"))
}

func TestResource_ExecuteWithState(t *testing.T) {
	t.Parallel()

	transport := replying(http.StatusOK, `{"stats":{"bytes_in":10}}`)
	lb := newLoadBalancerKind().New(osapi.NewExecutor(transport, neutronURL), osapi.Attributes{"id": "lb-1"})

	op := &osapi.Operation{
		Name:   "getLoadBalancerStats",
		Method: osapi.MethodGet,
		Path:   lbPath + "/{id}/stats",
		Params: map[string]osapi.Param{
			"id":     {Location: osapi.ParamURL},
			"fields": {Location: osapi.ParamQuery},
		},
	}

	resp, err := lb.ExecuteWithState(context.Background(), op, osapi.Params{"fields": "bytes_in"})
	require.NoError(t, err)

	call := transport.Last()
	assert.Equal(t, lbPath+"/lb-1/stats", call.path(t))
	assert.Equal(t, "bytes_in", call.query(t).Get("fields"))
	assert.Contains(t, resp.Object(), "stats")
}

func TestResource_Accessors(t *testing.T) {
	t.Parallel()

	lb := newLoadBalancerKind().New(nil, osapi.Attributes{"id": int64(7), "ratio": 1.5, "count": 3})

	assert.Equal(t, "7", lb.ID())
	assert.Equal(t, int64(1), lb.Int("ratio"))
	assert.Equal(t, int64(3), lb.Int("count"))
	assert.Empty(t, lb.String("missing"))
	assert.False(t, lb.Bool("missing"))
	assert.Nil(t, lb.Resources("missing"))
	assert.Nil(t, lb.Nested("missing"))

	attrs := lb.Attributes()
	attrs["id"] = "changed"
	assert.Equal(t, "7", lb.ID(), "Attributes returns a copy")

	lb.Set("name", "web")
	assert.Equal(t, "web", lb.String("name"))
}

func TestCapability_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "none", osapi.Capability(0).String())
	assert.Equal(t, "retrieve", osapi.CapRetrieve.String())
	assert.Equal(t, "create|delete", (osapi.CapCreate | osapi.CapDelete).String())
	assert.True(t, (osapi.CapCreate | osapi.CapList).Has(osapi.CapList))
	assert.False(t, osapi.CapCreate.Has(osapi.CapCreate|osapi.CapList))
	assert.False(t, osapi.CapCreate.Has(0))
}

func TestResource_WithoutExecutor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kind := newLoadBalancerKind()

	table := osapi.MustAliasTable(
		osapi.Alias{Remote: "loadbalancers", Kind: osapi.AliasCollection, Resource: kind},
	)

	attrs, err := table.Decode(map[string]any{
		"loadbalancers": []any{map[string]any{"id": "lb-1", "name": "web"}},
	})
	require.NoError(t, err)

	decoded, ok := attrs["loadbalancers"].([]*osapi.Resource)
	require.True(t, ok)
	require.Len(t, decoded, 1)

	detached := kind.New(nil, osapi.Attributes{"id": "lb-2", "name": "api"})

	for _, res := range []*osapi.Resource{decoded[0], detached} {
		err := res.Retrieve(ctx)
		require.ErrorIs(t, err, osapi.ErrNilTransport)
		assert.True(t, osapi.IsPrecondition(err))

		require.ErrorIs(t, res.Update(ctx), osapi.ErrNilTransport)
		require.ErrorIs(t, res.Delete(ctx), osapi.ErrNilTransport)

		_, err = res.Create(ctx, osapi.Params{"vipSubnetId": "sub-1"})
		require.ErrorIs(t, err, osapi.ErrNilTransport)
	}

	_, err = kind.Enumerate(ctx, nil, nil, nil).All()
	require.ErrorIs(t, err, osapi.ErrNilTransport)

	assert.Equal(t, "web", decoded[0].String("name"), "attributes survive the failed calls")
	assert.Equal(t, "api", detached.String("name"))

	var exec *osapi.Executor

	_, err = exec.Get(ctx, neutronURL+lbPath)
	require.ErrorIs(t, err, osapi.ErrNilTransport)
	assert.False(t, exec.Ready())
}

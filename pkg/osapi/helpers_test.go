package osapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"testing"

	"github.com/fivetwenty-io/osclient/pkg/osapi"
	"github.com/stretchr/testify/require"
)

const neutronURL = "https://neutron.example.com:9696"

type recordedCall struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

func (c recordedCall) query(t *testing.T) url.Values {
	t.Helper()

	parsed, err := url.Parse(c.URL)
	require.NoError(t, err)

	return parsed.Query()
}

func (c recordedCall) path(t *testing.T) string {
	t.Helper()

	parsed, err := url.Parse(c.URL)
	require.NoError(t, err)

	return parsed.EscapedPath()
}

func (c recordedCall) jsonBody(t *testing.T) map[string]any {
	t.Helper()

	var body map[string]any

	require.NoError(t, json.Unmarshal(c.Body, &body))

	return body
}

// fakeTransport records every call and answers through handler.
type fakeTransport struct {
	mu      sync.Mutex
	calls   []recordedCall
	handler func(call recordedCall) (*osapi.TransportResponse, error)
}

func newFakeTransport(handler func(call recordedCall) (*osapi.TransportResponse, error)) *fakeTransport {
	return &fakeTransport{handler: handler}
}

// replying answers every call with the same status and body.
func replying(status int, body string) *fakeTransport {
	return newFakeTransport(func(recordedCall) (*osapi.TransportResponse, error) {
		return jsonResponse(status, body), nil
	})
}

func (f *fakeTransport) Send(ctx context.Context, method, rawURL string, header http.Header, body []byte) (*osapi.TransportResponse, error) {
	call := recordedCall{Method: method, URL: rawURL, Header: header.Clone(), Body: body}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	handler := f.handler
	f.mu.Unlock()

	if handler == nil {
		return jsonResponse(http.StatusOK, ""), nil
	}

	return handler(call)
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func (f *fakeTransport) Call(i int) recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[i]
}

func (f *fakeTransport) Last() recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[len(f.calls)-1]
}

func jsonResponse(status int, body string) *osapi.TransportResponse {
	header := http.Header{}
	if body != "" {
		header.Set("Content-Type", "application/json")
	}

	return &osapi.TransportResponse{StatusCode: status, Header: header, Body: []byte(body)}
}

var listenerKind = &osapi.ResourceKind{
	Name: "listener",
	Aliases: osapi.MustAliasTable(
		osapi.Alias{Remote: "id"},
		osapi.Alias{Remote: "protocol", Local: "protocol"},
		osapi.Alias{Remote: "protocol_port", Local: "protocolPort"},
	),
	Identity: []string{"id"},
}

const lbPath = "/v2.0/lbaas/loadbalancers"

// newLoadBalancerKind declares a kind modelled on the LBaaS v2 API.
func newLoadBalancerKind() *osapi.ResourceKind {
	body := map[string]osapi.Param{
		"name":         {Location: osapi.ParamJSON},
		"adminStateUp": {Location: osapi.ParamJSON, SentAs: "admin_state_up"},
	}

	createParams := map[string]osapi.Param{
		"vipSubnetId": {Location: osapi.ParamJSON, SentAs: "vip_subnet_id", Required: true},
	}
	for name, param := range body {
		createParams[name] = param
	}

	updateParams := map[string]osapi.Param{"id": {Location: osapi.ParamURL}}
	for name, param := range body {
		updateParams[name] = param
	}

	return &osapi.ResourceKind{
		Name: "loadbalancer",
		Aliases: osapi.MustAliasTable(
			osapi.Alias{Remote: "id"},
			osapi.Alias{Remote: "name"},
			osapi.Alias{Remote: "admin_state_up", Local: "adminStateUp"},
			osapi.Alias{Remote: "vip_subnet_id", Local: "vipSubnetId"},
			osapi.Alias{Remote: "provisioning_status", Local: "provisioningStatus"},
			osapi.Alias{Remote: "listeners", Kind: osapi.AliasCollection, Resource: listenerKind},
			osapi.Alias{Remote: "pool", Kind: osapi.AliasResource, Resource: listenerKind},
			osapi.Alias{Remote: "tags", Kind: osapi.AliasStructure},
		),
		Identity:     []string{"id"},
		Capabilities: osapi.CapCreate | osapi.CapRetrieve | osapi.CapUpdate | osapi.CapDelete | osapi.CapList,
		Operations: map[osapi.Capability]*osapi.Operation{
			osapi.CapCreate: {
				Name: "postLoadBalancer", Method: osapi.MethodPost, Path: lbPath,
				Params: createParams, JSONKey: "loadbalancer", ResponseKey: "loadbalancer",
			},
			osapi.CapRetrieve: {
				Name: "getLoadBalancer", Method: osapi.MethodGet, Path: lbPath + "/{id}",
				Params: map[string]osapi.Param{"id": {Location: osapi.ParamURL}}, ResponseKey: "loadbalancer",
			},
			osapi.CapUpdate: {
				Name: "putLoadBalancer", Method: osapi.MethodPut, Path: lbPath + "/{id}",
				Params: updateParams, JSONKey: "loadbalancer", ResponseKey: "loadbalancer",
			},
			osapi.CapDelete: {
				Name: "deleteLoadBalancer", Method: osapi.MethodDelete, Path: lbPath + "/{id}",
				Params: map[string]osapi.Param{"id": {Location: osapi.ParamURL}},
			},
			osapi.CapList: {
				Name: "getLoadBalancers", Method: osapi.MethodGet, Path: lbPath,
				Params: map[string]osapi.Param{
					"limit":  {Location: osapi.ParamQuery},
					"marker": {Location: osapi.ParamQuery},
					"name":   {Location: osapi.ParamQuery},
				},
				ResponsesKey: "loadbalancers",
			},
		},
		Mutable: []string{"name", "adminStateUp"},
	}
}

func urlQuery(rawURL string) (url.Values, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	return parsed.Query(), nil
}

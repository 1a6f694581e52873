package client_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/osclient/internal/client"
	"github.com/fivetwenty-io/osclient/pkg/osapi"
)

const (
	testToken  = "gAAAAABtest"
	testRegion = "RegionOne"
	swiftPath  = "/v1/AUTH_demo"
)

// cloud is an httptest server standing in for every service of one region.
type cloud struct {
	server *httptest.Server
	mu     sync.Mutex
	calls  []string
}

// Requests returns the number of requests served so far.
func (c *cloud) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.calls)
}

// Calls returns "METHOD path?query" for every request served so far.
func (c *cloud) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.calls...)
}

// catalogFor lists identity, network and object-store endpoints on baseURL.
func catalogFor(baseURL string) *osapi.Catalog {
	endpoint := func(url string) []osapi.CatalogEndpoint {
		return []osapi.CatalogEndpoint{
			{Region: "RegionTwo", Interface: "public", URL: "https://unused.example.com"},
			{Region: testRegion, Interface: "internal", URL: "https://internal.example.com"},
			{Region: testRegion, Interface: "public", URL: url},
		}
	}

	return &osapi.Catalog{Services: []osapi.CatalogService{
		{Name: "keystone", Type: "identity", Endpoints: endpoint(baseURL)},
		{Name: "neutron", Type: "network", Endpoints: endpoint(baseURL)},
		{Name: "swift", Type: "object-store", Endpoints: endpoint(baseURL + swiftPath)},
	}}
}

// newCloud starts handler and returns a client whose catalog points at it.
func newCloud(t *testing.T, handler http.HandlerFunc) (*client.Client, *cloud) {
	t.Helper()

	fake := &cloud{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		fake.calls = append(fake.calls, r.Method+" "+r.URL.RequestURI())
		fake.mu.Unlock()

		handler(w, r)
	}))
	t.Cleanup(fake.server.Close)

	c, err := client.New(context.Background(), &osapi.Config{
		AuthToken: testToken,
		Region:    testRegion,
	}, catalogFor(fake.server.URL))
	require.NoError(t, err)

	return c, fake
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err := io.WriteString(w, body)
	if err != nil {
		t.Errorf("writing response: %v", err)
	}
}

func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	var body map[string]any

	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		t.Errorf("decoding request body: %v", err)
	}

	return body
}

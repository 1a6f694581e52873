package openstack_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/osclient/pkg/openstack"
	"github.com/fivetwenty-io/osclient/pkg/osapi"
)

const token = "gAAAAABtoken"

// keystone serves GET /v3/auth/tokens with a catalog pointing every service
// back at itself, plus a single load balancer.
type keystone struct {
	server    *httptest.Server
	validated atomic.Int32
	lookups   atomic.Int32
}

func newKeystone(t *testing.T) *keystone {
	t.Helper()

	ks := &keystone{}
	ks.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/v3/auth/tokens":
			ks.validated.Add(1)

			if r.Header.Get("X-Auth-Token") != token || r.Header.Get("X-Subject-Token") != token {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = fmt.Fprint(w, `{"error":{"code":401,"message":"The request you have made requires authentication.","title":"Unauthorized"}}`)

				return
			}

			w.Header().Set("X-Subject-Token", token)
			_, _ = fmt.Fprintf(w, `{"token":{"expires_at":"2099-01-01T00:00:00.000000Z","catalog":[
				{"id":"k","name":"keystone","type":"identity","endpoints":[
					{"id":"k1","interface":"public","region":"RegionOne","region_id":"RegionOne","url":"http://%[1]s/v3"}]},
				{"id":"n","name":"neutron","type":"network","endpoints":[
					{"id":"n1","interface":"public","region":"RegionOne","region_id":"RegionOne","url":"http://%[1]s"}]}
			]}}`, r.Host)
		case "/v2.0/lbaas/loadbalancers/lb-1":
			ks.lookups.Add(1)
			assert.Equal(t, token, r.Header.Get("X-Auth-Token"))
			_, _ = fmt.Fprint(w, `{"loadbalancer":{"id":"lb-1","admin_state_up":true,"listeners":[]}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ks.server.Close)

	return ks
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	_, err := openstack.New(ctx, nil)
	require.ErrorIs(t, err, osapi.ErrConfigRequired)

	_, err = openstack.New(ctx, &osapi.Config{Interface: "private", AuthToken: token})
	require.ErrorIs(t, err, osapi.ErrInvalidConfig)

	_, err = openstack.New(ctx, &osapi.Config{AuthToken: token})
	require.ErrorIs(t, err, osapi.ErrCatalogSourceMissing)

	_, err = openstack.New(ctx, &osapi.Config{Catalog: &osapi.Catalog{Services: []osapi.CatalogService{{Name: "neutron"}}}})
	require.ErrorIs(t, err, osapi.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "Services[0].Type: required")

	_, err = openstack.New(ctx, &osapi.Config{Catalog: &osapi.Catalog{}})
	require.ErrorIs(t, err, osapi.ErrEmptyCatalog)
}

func TestNewWithToken(t *testing.T) {
	t.Parallel()

	ks := newKeystone(t)
	ctx := context.Background()

	cli, err := openstack.NewWithToken(ctx, ks.server.URL+"/v3/", token, "RegionOne")
	require.NoError(t, err)
	assert.Equal(t, int32(1), ks.validated.Load())
	assert.Equal(t, []string{"identity", "network"}, cli.Catalog().ServiceTypes())

	networking, err := cli.Networking()
	require.NoError(t, err)

	lb := networking.GetLoadBalancer("lb-1")
	require.NoError(t, lb.Retrieve(ctx))
	assert.True(t, lb.Bool("adminStateUp"))
	assert.Equal(t, int32(1), ks.lookups.Load())

	_, err = cli.ObjectStore()
	require.ErrorIs(t, err, osapi.ErrServiceUnavailable)
}

func TestNewWithToken_Rejected(t *testing.T) {
	t.Parallel()

	ks := newKeystone(t)

	_, err := openstack.NewWithToken(context.Background(), ks.server.URL, "expired", "RegionOne")
	require.Error(t, err)

	code, ok := osapi.StatusCode(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Contains(t, err.Error(), "requires authentication")
}

func TestNew_CatalogStore(t *testing.T) {
	t.Parallel()

	ks := newKeystone(t)
	ctx := context.Background()
	store := osapi.NewCatalogStore(osapi.NewMemoryCache(10), 0, nil)

	config := &osapi.Config{IdentityEndpoint: ks.server.URL, AuthToken: token, Region: "RegionOne"}

	for range 3 {
		cli, err := openstack.New(ctx, config, openstack.WithCatalogStore(store))
		require.NoError(t, err)

		_, err = cli.Identity()
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), ks.validated.Load())

	stats := store.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
}

func TestNew_BadgerCatalogCache(t *testing.T) {
	t.Parallel()

	ks := newKeystone(t)

	cli, err := openstack.New(context.Background(), &osapi.Config{
		IdentityEndpoint: ks.server.URL,
		AuthToken:        token,
		Region:           "RegionOne",
		CatalogCache: &osapi.CacheConfig{
			Type:   osapi.CacheTypeBadger,
			Badger: &osapi.BadgerCacheConfig{InMemory: true},
		},
	})
	require.NoError(t, err)

	_, err = cli.Networking()
	require.NoError(t, err)
}

func TestNew_CatalogFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yml")
	require.NoError(t, os.WriteFile(path, []byte(`services:
  - name: swift
    type: object-store
    endpoints:
      - region: RegionOne
        interface: public
        url: https://swift.example.com/v1/AUTH_demo
`), 0o600))

	cli, err := openstack.New(context.Background(), &osapi.Config{CatalogFile: path, Region: "RegionOne", AuthToken: token})
	require.NoError(t, err)

	_, err = cli.ObjectStore()
	require.NoError(t, err)

	_, err = cli.Networking()
	require.ErrorIs(t, err, osapi.ErrServiceUnavailable)
}

func TestNewWithCatalog_Transport(t *testing.T) {
	t.Parallel()

	catalog := &osapi.Catalog{Services: []osapi.CatalogService{{
		Name: "neutron", Type: "network",
		Endpoints: []osapi.CatalogEndpoint{{Region: "RegionOne", Interface: "internal", URL: "https://neutron.internal:9696"}},
	}}}

	var calls atomic.Int32

	transport := osapi.TransportFunc(func(_ context.Context, method, rawURL string, header http.Header, _ []byte) (*osapi.TransportResponse, error) {
		calls.Add(1)
		assert.Equal(t, "https://neutron.internal:9696/v2.0/lbaas/loadbalancers/lb-1", rawURL)
		assert.Equal(t, token, header.Get("X-Auth-Token"))

		return &osapi.TransportResponse{StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
	})

	cli, err := openstack.New(context.Background(), &osapi.Config{
		Catalog:   catalog,
		AuthToken: token,
		Region:    "RegionOne",
		Interface: "internal",
	}, openstack.WithTransport(transport), openstack.WithRateLimit(100))
	require.NoError(t, err)
	defer cli.Close()

	networking, err := cli.Networking()
	require.NoError(t, err)

	err = networking.GetLoadBalancer("lb-1").Retrieve(context.Background())
	assert.True(t, osapi.IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())

	_, err = openstack.NewWithCatalog(context.Background(), catalog, token, "RegionOne")
	require.NoError(t, err)
}

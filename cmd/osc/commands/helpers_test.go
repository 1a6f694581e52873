package commands

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken = "gAAAAABcli"
	swiftPath = "/v1/AUTH_demo"
)

// setupConfig points the CLI at an empty config file in a temp dir.
func setupConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "osc", "config.yml")

	viper.Reset()
	viper.Set("config", path)
	viper.Set("output", "table")
	t.Cleanup(viper.Reset)

	return path
}

// runCommand executes cmd with args and returns what it printed.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(bytes.NewBufferString(""))

	err := cmd.Execute()

	return out.String(), err
}

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// fakeCloud serves Keystone token validation, one load balancer and a
// Swift account from a single httptest server.
type fakeCloud struct {
	server    *httptest.Server
	validated atomic.Int32
}

func newFakeCloud(t *testing.T) *fakeCloud {
	t.Helper()

	fake := &fakeCloud{}
	fake.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch r.Method + " " + r.URL.Path {
		case "GET /v3/auth/tokens":
			fake.validated.Add(1)

			if r.Header.Get("X-Subject-Token") != testToken {
				w.WriteHeader(http.StatusNotFound)
				_, _ = fmt.Fprint(w, `{"error":{"code":404,"message":"Could not find token.","title":"Not Found"}}`)

				return
			}

			_, _ = fmt.Fprintf(w, `{"token":{"catalog":[
				{"id":"k","name":"keystone","type":"identity","endpoints":[
					{"interface":"public","region":"RegionOne","url":"http://%[1]s/v3"}]},
				{"id":"n","name":"neutron","type":"network","endpoints":[
					{"interface":"public","region":"RegionOne","url":"http://%[1]s"}]},
				{"id":"s","name":"swift","type":"object-store","endpoints":[
					{"interface":"public","region":"RegionOne","url":"http://%[1]s%[2]s"}]}
			]}}`, r.Host, swiftPath)
		case "GET /v2.0/lbaas/loadbalancers/lb-1":
			assert.Equal(t, testToken, r.Header.Get("X-Auth-Token"))
			_, _ = fmt.Fprint(w, `{"loadbalancer":{"id":"lb-1","name":"web","vip_address":"10.0.0.4",
				"provisioning_status":"ACTIVE","listeners":[{"id":"l-1"}]}}`)
		case "GET /v2.0/lbaas/loadbalancers":
			_, _ = fmt.Fprint(w, `{"loadbalancers":[{"id":"lb-1","name":"web"},{"id":"lb-2","name":"api"}]}`)
		case "GET /v2.0/lbaas/loadbalancers/lb-1/stats":
			_, _ = fmt.Fprint(w, `{"stats":{"bytes_in":10,"bytes_out":20,"active_connections":1,"total_connections":5}}`)
		case "HEAD " + swiftPath + "/photos":
			w.WriteHeader(http.StatusNoContent)
		case "HEAD " + swiftPath + "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fake.server.Close)

	return fake
}

// writeCatalogFile writes a catalog pointing the network service at baseURL.
func writeCatalogFile(t *testing.T, baseURL string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.yml")
	require.NoError(t, os.WriteFile(path, []byte(`services:
  - name: neutron
    type: network
    endpoints:
      - region: RegionOne
        interface: public
        url: `+baseURL+`
      - region: RegionOne
        interface: internal
        url: https://neutron.internal:9696
`), 0o600))

	return path
}

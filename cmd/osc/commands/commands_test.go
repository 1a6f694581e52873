package commands

import (
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fivetwenty-io/osclient/internal/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestCommandTree(t *testing.T) {
	tests := []struct {
		build       func() *cobra.Command
		use         string
		aliases     []string
		subcommands []string
	}{
		{NewCloudsCommand, "clouds", []string{"cloud"}, []string{"add", "use", "list", "remove"}},
		{NewCatalogCommand, "catalog", nil, []string{"list", "resolve"}},
		{NewServicesCommand, "services", []string{"service"}, []string{"list", "get"}},
		{NewLoadBalancersCommand, "loadbalancers", []string{"loadbalancer", "lb"}, []string{"list", "get", "stats", "wait"}},
		{NewContainersCommand, "containers", []string{"container"}, []string{"list", "get", "exists"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			cmd := tt.build()
			assert.Equal(t, tt.use, cmd.Use)
			assert.Equal(t, tt.aliases, cmd.Aliases)
			assert.NotEmpty(t, cmd.Short)
			assert.Len(t, cmd.Commands(), len(tt.subcommands))

			for _, name := range tt.subcommands {
				sub := findSubcommand(cmd, name)
				require.NotNil(t, sub, "subcommand %s", name)
				assert.NotNil(t, sub.RunE)
			}
		})
	}
}

func TestListFlags(t *testing.T) {
	cmd := newLoadBalancersListCommand()

	for _, name := range []string{"limit", "marker", "max", "status"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "flag %s", name)
	}

	require.NoError(t, cmd.Flags().Set("limit", "50"))
	require.NoError(t, cmd.Flags().Set("marker", "lb-9"))

	values := listOptions(cmd).ToValues()
	assert.Equal(t, "50", values.Get("limit"))
	assert.Equal(t, "lb-9", values.Get("marker"))
}

func TestClouds(t *testing.T) {
	path := setupConfig(t)

	out, err := runCommand(t, NewCloudsCommand(), "list")
	require.ErrorIs(t, err, constants.ErrNoCloudsConfigured)
	assert.Contains(t, out, "osc clouds add")

	_, err = runCommand(t, NewCloudsCommand(), "add", "dev")
	require.ErrorIs(t, err, ErrIdentityEndpointRequired)

	out, err = runCommand(t, NewCloudsCommand(), "add", "dev",
		"--identity-endpoint", "https://keystone.dev:5000", "--region", "RegionOne",
		"--endpoint", "network=https://neutron.dev:9696")
	require.NoError(t, err)
	assert.Equal(t, "Added cloud dev\n", out)

	_, err = runCommand(t, NewCloudsCommand(), "add", "prod",
		"--identity-endpoint", "https://keystone.prod:5000", "--region", "RegionTwo", "--interface", "internal")
	require.NoError(t, err)

	config, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "dev", config.CurrentCloud, "the first cloud becomes current")
	assert.Equal(t, map[string]string{"network": "https://neutron.dev:9696"}, config.Clouds["dev"].Endpoints)
	assert.Equal(t, "internal", config.Clouds["prod"].Interface)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(constants.ConfigFilePerm), info.Mode().Perm())

	_, err = runCommand(t, NewCloudsCommand(), "use", "staging")
	require.ErrorIs(t, err, constants.ErrCloudNotFound)

	out, err = runCommand(t, NewCloudsCommand(), "use", "prod")
	require.NoError(t, err)
	assert.Equal(t, "Using cloud prod\n", out)

	viper.Set("output", "json")

	out, err = runCommand(t, NewCloudsCommand(), "list")
	require.NoError(t, err)

	var clouds []CloudInfo
	require.NoError(t, json.Unmarshal([]byte(out), &clouds))
	require.Len(t, clouds, 2)
	assert.Equal(t, "dev", clouds[0].Name)
	assert.False(t, clouds[0].Current)
	assert.True(t, clouds[1].Current)

	_, err = runCommand(t, NewCloudsCommand(), "remove", "prod")
	require.NoError(t, err)

	config, err = loadConfig()
	require.NoError(t, err)
	assert.Empty(t, config.CurrentCloud)
	assert.Len(t, config.Clouds, 1)

	_, _, err = selectedCloud()
	require.ErrorIs(t, err, constants.ErrNoCurrentCloud)
}

func TestClientConfig(t *testing.T) {
	setupConfig(t)

	cloud := &CloudConfig{IdentityEndpoint: "https://keystone:5000", Region: "RegionOne"}

	_, err := cloud.clientConfig()
	require.ErrorIs(t, err, ErrNotAuthenticated)

	cloud.Token = "stored"
	config, err := cloud.clientConfig()
	require.NoError(t, err)
	assert.Equal(t, "stored", config.AuthToken)
	assert.False(t, config.SkipTLSVerify)

	viper.Set("token", "override")
	viper.Set("skip_ssl_validation", true)

	config, err = cloud.clientConfig()
	require.NoError(t, err)
	assert.Equal(t, "override", config.AuthToken)
	assert.True(t, config.SkipTLSVerify)
	assert.True(t, config.TokenExpiresAt.IsZero())
}

func TestConfigPersister(t *testing.T) {
	setupConfig(t)

	persister := NewConfigPersister()

	err := persister.UpdateCloudToken("dev", "t", time.Time{})
	require.ErrorIs(t, err, constants.ErrCloudNotFound)

	require.NoError(t, saveConfig(&Config{Clouds: map[string]*CloudConfig{"dev": {IdentityEndpoint: "https://keystone:5000"}}}))

	expiresAt := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, persister.UpdateCloudToken("dev", "fresh", expiresAt))

	config, err := loadConfig()
	require.NoError(t, err)

	dev := config.Clouds["dev"]
	assert.Equal(t, "fresh", dev.Token)
	require.NotNil(t, dev.TokenExpiresAt)
	assert.True(t, expiresAt.Equal(*dev.TokenExpiresAt))
	assert.NotNil(t, dev.LastLogin)
	assert.Equal(t, "https://keystone:5000", dev.IdentityEndpoint)
}

func TestMaskToken(t *testing.T) {
	assert.Empty(t, maskToken(""))
	assert.Equal(t, "***", maskToken("short"))
	assert.Equal(t, "gAAAAABc***", maskToken("gAAAAABcdefghij"))
}

func TestVersionCommand(t *testing.T) {
	setupConfig(t)

	out, err := runCommand(t, NewVersionCommand("1.2.3", "abc123", "2026-10-19"))
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
	assert.Contains(t, out, "abc123")

	viper.Set("output", "yaml")

	out, err = runCommand(t, NewVersionCommand("1.2.3", "abc123", "2026-10-19"))
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info["version"])

	viper.Set("output", "xml")

	_, err = runCommand(t, NewVersionCommand("1.2.3", "abc123", "2026-10-19"))
	require.ErrorIs(t, err, constants.ErrInvalidOutputFormat)
}

func TestPromptToken(t *testing.T) {
	var out strings.Builder

	token, err := promptToken(strings.NewReader("  gAAAAABtyped \n"), &out)
	require.NoError(t, err)
	assert.Equal(t, "gAAAAABtyped", token)
	assert.Equal(t, "Token: ", out.String())
}

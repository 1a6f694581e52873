package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fivetwenty-io/osclient/internal/constants"
	"github.com/fivetwenty-io/osclient/pkg/osapi"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration.
type Config struct {
	Clouds       map[string]*CloudConfig `json:"clouds,omitempty"        yaml:"clouds,omitempty"`
	CurrentCloud string                  `json:"current_cloud,omitempty" yaml:"current_cloud,omitempty"`

	// CatalogCache is shared by every cloud.
	CatalogCache *osapi.CacheConfig `json:"catalog_cache,omitempty" yaml:"catalog_cache,omitempty"`
}

// CloudConfig represents configuration for a single OpenStack cloud.
type CloudConfig struct {
	IdentityEndpoint  string            `json:"identity_endpoint,omitempty"  yaml:"identity_endpoint,omitempty"`
	Token             string            `json:"token,omitempty"              yaml:"token,omitempty"`
	TokenExpiresAt    *time.Time        `json:"token_expires_at,omitempty"   yaml:"token_expires_at,omitempty"`
	LastLogin         *time.Time        `json:"last_login,omitempty"         yaml:"last_login,omitempty"`
	Region            string            `json:"region,omitempty"             yaml:"region,omitempty"`
	Interface         string            `json:"interface,omitempty"          yaml:"interface,omitempty"`
	CatalogFile       string            `json:"catalog_file,omitempty"       yaml:"catalog_file,omitempty"`
	Endpoints         map[string]string `json:"endpoints,omitempty"          yaml:"endpoints,omitempty"`
	SkipSSLValidation bool              `json:"skip_ssl_validation"          yaml:"skip_ssl_validation"`

	// catalogCache is copied from Config when the cloud is selected.
	catalogCache *osapi.CacheConfig
}

// configFilePath returns the config file in use, defaulting to
// $HOME/.osc/config.yml.
func configFilePath() (string, error) {
	if path := viper.GetString("config"); path != "" {
		return path, nil
	}

	if path := viper.ConfigFileUsed(); path != "" {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(home, ".osc", "config.yml"), nil
}

// loadConfig reads the config file. A missing file yields an empty config.
func loadConfig() (*Config, error) {
	path, err := configFilePath()
	if err != nil {
		return nil, err
	}

	config := &Config{Clouds: make(map[string]*CloudConfig)}

	// path comes from the --config flag or the user's home directory
	// #nosec G304
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if config.Clouds == nil {
		config.Clouds = make(map[string]*CloudConfig)
	}

	return config, nil
}

// saveConfig writes config back, creating the directory when needed.
func saveConfig(config *Config) error {
	path, err := configFilePath()
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// cloudNames returns the configured cloud names in order.
func (c *Config) cloudNames() []string {
	names := make([]string, 0, len(c.Clouds))
	for name := range c.Clouds {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// selectedCloud returns the cloud named by --cloud, or the current one.
func selectedCloud() (string, *CloudConfig, error) {
	config, err := loadConfig()
	if err != nil {
		return "", nil, err
	}

	if len(config.Clouds) == 0 {
		return "", nil, constants.ErrNoCloudsConfigured
	}

	name := viper.GetString("cloud")
	if name == "" {
		name = config.CurrentCloud
	}

	if name == "" {
		return "", nil, constants.ErrNoCurrentCloud
	}

	cloud, ok := config.Clouds[name]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s", constants.ErrCloudNotFound, name)
	}

	cloud.catalogCache = config.CatalogCache

	return name, cloud, nil
}

// clientConfig maps the cloud onto a client configuration. --token and
// --skip-ssl-validation take precedence over the stored values.
func (c *CloudConfig) clientConfig() (*osapi.Config, error) {
	token := c.Token
	if override := viper.GetString("token"); override != "" {
		token = override
	}

	if token == "" && c.CatalogFile == "" {
		return nil, ErrNotAuthenticated
	}

	config := &osapi.Config{
		IdentityEndpoint:  c.IdentityEndpoint,
		AuthToken:         token,
		Region:            c.Region,
		Interface:         c.Interface,
		CatalogFile:       c.CatalogFile,
		CatalogCache:      c.catalogCache,
		EndpointOverrides: c.Endpoints,
		SkipTLSVerify:     c.SkipSSLValidation || viper.GetBool("skip_ssl_validation"),
		Debug:             viper.GetBool("verbose"),
		Logger:            newLogger(),
	}

	if c.TokenExpiresAt != nil && token == c.Token {
		config.TokenExpiresAt = *c.TokenExpiresAt
	}

	return config, nil
}

package commands

import (
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/osclient/internal/constants"
)

// ConfigPersister implements the auth.ConfigPersister interface.
type ConfigPersister struct {
	mutex sync.Mutex
}

// NewConfigPersister creates a new config persister.
func NewConfigPersister() *ConfigPersister {
	return &ConfigPersister{}
}

// UpdateCloudToken stores token for cloud and records the login time.
func (p *ConfigPersister) UpdateCloudToken(cloud, token string, expiresAt time.Time) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	cloudConfig, exists := config.Clouds[cloud]
	if !exists {
		return fmt.Errorf("cloud configuration for '%s': %w", cloud, constants.ErrCloudNotFound)
	}

	cloudConfig.Token = token
	if !expiresAt.IsZero() {
		cloudConfig.TokenExpiresAt = &expiresAt
	} else {
		cloudConfig.TokenExpiresAt = nil
	}

	now := time.Now().UTC()
	cloudConfig.LastLogin = &now

	return saveConfig(config)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoConfigPersister = errors.New("no config persister configured")
)

// ConfigPersister saves tokens to the CLI configuration.
type ConfigPersister interface {
	UpdateCloudToken(cloud, token string, expiresAt time.Time) error
}

// ConfigTokenManager wraps another TokenManager and writes every token set on
// it back to the configuration of a named cloud.
type ConfigTokenManager struct {
	inner           TokenManager
	configPersister ConfigPersister
	cloud           string
	mutex           sync.Mutex
	expiresAt       time.Time
}

// NewConfigTokenManager creates a config-persisting token manager.
func NewConfigTokenManager(inner TokenManager, configPersister ConfigPersister, cloud string) *ConfigTokenManager {
	return &ConfigTokenManager{
		inner:           inner,
		configPersister: configPersister,
		cloud:           cloud,
	}
}

// GetToken delegates to the wrapped manager.
func (m *ConfigTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.inner.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token for %s: %w", m.cloud, err)
	}

	return token, nil
}

// RefreshToken delegates to the wrapped manager.
func (m *ConfigTokenManager) RefreshToken(ctx context.Context) error {
	return m.inner.RefreshToken(ctx)
}

// SetToken sets the token and persists it. Persisting errors are reported by
// Persist; SetToken itself cannot fail.
func (m *ConfigTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.inner.SetToken(token, expiresAt)
	m.expiresAt = expiresAt
}

// Persist writes the current token to the configuration.
func (m *ConfigTokenManager) Persist(ctx context.Context) error {
	if m.configPersister == nil {
		return ErrNoConfigPersister
	}

	token, err := m.inner.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	m.mutex.Lock()
	expiresAt := m.expiresAt
	m.mutex.Unlock()

	err = m.configPersister.UpdateCloudToken(m.cloud, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to update cloud token: %w", err)
	}

	return nil
}

// IsTokenExpiringSoon returns true if the token expires within the given duration.
func (m *ConfigTokenManager) IsTokenExpiringSoon(within time.Duration) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.expiresAt.IsZero() {
		return false
	}

	return time.Now().Add(within).After(m.expiresAt)
}

// GetTokenExpiry returns the current token's expiration time.
func (m *ConfigTokenManager) GetTokenExpiry() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.expiresAt
}

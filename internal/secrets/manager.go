package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsAPI is the slice of the Secrets Manager client the manager uses
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretValue represents a generic secret value
type SecretValue map[string]string

// DeployCredentials is the credential triple stored for the deployer.
// SessionToken is optional.
type DeployCredentials struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token,omitempty"`
}

// cachedSecret represents a cached secret with TTL
type cachedSecret struct {
	Value     SecretValue
	ExpiresAt time.Time
}

// Manager handles AWS Secrets Manager operations with caching
type Manager struct {
	client    SecretsAPI
	logger    *slog.Logger
	cache     map[string]*cachedSecret
	cacheLock sync.RWMutex
	cacheTTL  time.Duration
}

// NewManager creates a new secrets manager with caching
func NewManager(cfg aws.Config, logger *slog.Logger) *Manager {
	return NewManagerWithClient(secretsmanager.NewFromConfig(cfg), logger)
}

// NewManagerWithClient creates a secrets manager over an explicit client
func NewManagerWithClient(client SecretsAPI, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		client:   client,
		logger:   logger,
		cache:    make(map[string]*cachedSecret),
		cacheTTL: 5 * time.Minute,
	}
}

// GetSecret retrieves a secret from AWS Secrets Manager with caching
func (m *Manager) GetSecret(ctx context.Context, secretName string) (SecretValue, error) {
	if cached := m.getFromCache(secretName); cached != nil {
		m.logger.Debug("secret cache hit", slog.String("secret_name", "[REDACTED]"))
		return cached.Value, nil
	}

	m.logger.Debug("secret cache miss, fetching from AWS", slog.String("secret_name", "[REDACTED]"))

	result, err := m.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		m.logger.Error("failed to retrieve secret",
			slog.String("error", err.Error()),
			// SECURITY: Never log secret name in production
			slog.String("secret_name", "[REDACTED]"),
		)
		return nil, fmt.Errorf("failed to retrieve secret: %w", err)
	}

	if result.SecretString == nil {
		return nil, fmt.Errorf("secret has no string value")
	}

	var secretValue SecretValue
	if err := json.Unmarshal([]byte(*result.SecretString), &secretValue); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}

	m.putInCache(secretName, secretValue)

	return secretValue, nil
}

// GetDeployCredentials retrieves the deployer's credential triple from a secret
func (m *Manager) GetDeployCredentials(ctx context.Context, secretName string) (*DeployCredentials, error) {
	secretValue, err := m.GetSecret(ctx, secretName)
	if err != nil {
		return nil, err
	}

	creds := &DeployCredentials{
		AccessKeyID:     secretValue["access_key_id"],
		SecretAccessKey: secretValue["secret_access_key"],
		SessionToken:    secretValue["session_token"],
	}

	if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
		return nil, fmt.Errorf("secret missing required credential fields (access_key_id, secret_access_key)")
	}

	// SECURITY: Never log credentials
	m.logger.Debug("deploy credentials retrieved",
		slog.String("secret_name", "[REDACTED]"),
	)

	return creds, nil
}

// getFromCache retrieves a secret from cache if not expired
func (m *Manager) getFromCache(secretName string) *cachedSecret {
	m.cacheLock.RLock()
	defer m.cacheLock.RUnlock()

	cached, exists := m.cache[secretName]
	if !exists {
		return nil
	}

	if time.Now().After(cached.ExpiresAt) {
		return nil
	}

	return cached
}

// putInCache stores a secret in cache with TTL
func (m *Manager) putInCache(secretName string, value SecretValue) {
	m.cacheLock.Lock()
	defer m.cacheLock.Unlock()

	m.cache[secretName] = &cachedSecret{
		Value:     value,
		ExpiresAt: time.Now().Add(m.cacheTTL),
	}
}

// ClearCache clears all cached secrets
func (m *Manager) ClearCache() {
	m.cacheLock.Lock()
	defer m.cacheLock.Unlock()

	m.cache = make(map[string]*cachedSecret)
	m.logger.Debug("secret cache cleared")
}

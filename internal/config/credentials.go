package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/opsforge/conductor/internal/core/domain"
	"github.com/opsforge/conductor/internal/core/ports"
)

// CredentialsStore manages per-tenant console credentials with secrets
// encrypted at rest and masked on API reads. The same key also protects
// captured auth state, which is as sensitive as the password itself.
type CredentialsStore struct {
	mu     sync.Mutex
	logger *slog.Logger
	secret *SecretKey
	repo   ports.CredentialsRepository
}

func NewCredentialsStore(logger *slog.Logger, repo ports.CredentialsRepository, secret *SecretKey) *CredentialsStore {
	return &CredentialsStore{
		logger: logger,
		secret: secret,
		repo:   repo,
	}
}

// Save validates, encrypts, and persists credentials. When the update comes
// from the API with an empty or masked password, the stored one is kept.
func (s *CredentialsStore) Save(ctx context.Context, creds domain.TenantCredentials) error {
	if strings.TrimSpace(creds.TenantKey) == "" {
		return fmt.Errorf("tenant key is required")
	}
	if strings.TrimSpace(creds.Username) == "" {
		return fmt.Errorf("username is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if creds.Password == "" || isMasked(creds.Password) {
		existing, err := s.getLocked(ctx, creds.TenantKey)
		if err != nil && !errors.Is(err, domain.ErrCredentialsNotFound) {
			return err
		}
		creds.Password = existing.Password
	}
	if creds.Password == "" {
		return fmt.Errorf("password is required for tenant %s", creds.TenantKey)
	}

	encPassword, err := s.secret.Encrypt(creds.Password)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}
	encState, err := s.secret.Encrypt(creds.AuthState)
	if err != nil {
		return fmt.Errorf("encrypt auth state: %w", err)
	}

	stored := creds
	stored.Password = encPassword
	stored.AuthState = encState
	if err := s.repo.SaveCredentials(ctx, stored); err != nil {
		return err
	}

	s.logger.Info("tenant credentials saved", "tenant", creds.TenantKey)
	return nil
}

// Get returns credentials with secrets decrypted, for the login handshake.
func (s *CredentialsStore) Get(ctx context.Context, tenantKey string) (domain.TenantCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(ctx, tenantKey)
}

// GetMasked returns credentials safe for API responses.
func (s *CredentialsStore) GetMasked(ctx context.Context, tenantKey string) (domain.TenantCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.getLocked(ctx, tenantKey)
	if err != nil {
		return domain.TenantCredentials{}, err
	}
	creds.Password = MaskSecret(creds.Password)
	creds.AuthState = ""
	return creds, nil
}

// UpdateAuthState persists freshly captured login state for reuse by the
// next session. Called by the session manager after a successful handshake.
func (s *CredentialsStore) UpdateAuthState(ctx context.Context, tenantKey, authState string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.getLocked(ctx, tenantKey)
	if err != nil {
		return err
	}
	creds.AuthState = authState

	encPassword, err := s.secret.Encrypt(creds.Password)
	if err != nil {
		return fmt.Errorf("encrypt password: %w", err)
	}
	encState, err := s.secret.Encrypt(authState)
	if err != nil {
		return fmt.Errorf("encrypt auth state: %w", err)
	}
	creds.Password = encPassword
	creds.AuthState = encState
	return s.repo.SaveCredentials(ctx, creds)
}

func (s *CredentialsStore) ListTenants(ctx context.Context) ([]string, error) {
	return s.repo.ListCredentialTenants(ctx)
}

func (s *CredentialsStore) Delete(ctx context.Context, tenantKey string) error {
	return s.repo.DeleteCredentials(ctx, tenantKey)
}

func (s *CredentialsStore) getLocked(ctx context.Context, tenantKey string) (domain.TenantCredentials, error) {
	creds, err := s.repo.GetCredentials(ctx, tenantKey)
	if err != nil {
		return domain.TenantCredentials{}, err
	}

	if creds.Password != "" {
		plain, err := s.secret.Decrypt(creds.Password)
		if err != nil {
			s.logger.Warn("failed to decrypt password", "tenant", tenantKey, "error", err)
		} else {
			creds.Password = plain
		}
	}
	if creds.AuthState != "" {
		plain, err := s.secret.Decrypt(creds.AuthState)
		if err != nil {
			s.logger.Warn("failed to decrypt auth state", "tenant", tenantKey, "error", err)
			creds.AuthState = ""
		} else {
			creds.AuthState = plain
		}
	}
	return creds, nil
}

func isMasked(v string) bool {
	return strings.HasPrefix(v, "****")
}

package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opsforge/conductor/internal/core/domain"
)

func (r *Repository) SaveCredentials(ctx context.Context, creds domain.TenantCredentials) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenant_credentials (tenant_key, username, password, auth_state, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (tenant_key) DO UPDATE SET
			username   = excluded.username,
			password   = excluded.password,
			auth_state = excluded.auth_state,
			updated_at = excluded.updated_at`,
		creds.TenantKey, creds.Username, creds.Password, creds.AuthState, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (r *Repository) GetCredentials(ctx context.Context, tenantKey string) (domain.TenantCredentials, error) {
	var creds domain.TenantCredentials
	var password, authState sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT tenant_key, username, password, auth_state FROM tenant_credentials WHERE tenant_key = ?`,
		tenantKey,
	).Scan(&creds.TenantKey, &creds.Username, &password, &authState)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TenantCredentials{}, domain.ErrCredentialsNotFound
	}
	if err != nil {
		return domain.TenantCredentials{}, fmt.Errorf("get credentials: %w", err)
	}

	creds.Password = password.String
	creds.AuthState = authState.String
	return creds, nil
}

func (r *Repository) ListCredentialTenants(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT tenant_key FROM tenant_credentials ORDER BY tenant_key`)
	if err != nil {
		return nil, fmt.Errorf("list credential tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		tenants = append(tenants, key)
	}
	return tenants, rows.Err()
}

func (r *Repository) DeleteCredentials(ctx context.Context, tenantKey string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tenant_credentials WHERE tenant_key = ?`, tenantKey)
	if err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}

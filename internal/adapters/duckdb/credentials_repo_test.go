package duckdb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsforge/conductor/internal/core/domain"
)

func TestCredentials_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	creds := domain.TenantCredentials{
		TenantKey: "orgA",
		Username:  "automation@orga.example",
		Password:  "enc:abcd",
		AuthState: "enc:efgh",
	}
	require.NoError(t, repo.SaveCredentials(ctx, creds))

	got, err := repo.GetCredentials(ctx, "orgA")
	require.NoError(t, err)
	assert.Equal(t, creds, got)

	// Upsert keeps one row per tenant.
	creds.Password = "enc:rotated"
	require.NoError(t, repo.SaveCredentials(ctx, creds))
	got, err = repo.GetCredentials(ctx, "orgA")
	require.NoError(t, err)
	assert.Equal(t, "enc:rotated", got.Password)

	tenants, err := repo.ListCredentialTenants(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"orgA"}, tenants)

	require.NoError(t, repo.DeleteCredentials(ctx, "orgA"))
	_, err = repo.GetCredentials(ctx, "orgA")
	assert.True(t, errors.Is(err, domain.ErrCredentialsNotFound))
}

package domain

import "errors"

// TenantCredentials holds what the authentication handshake needs for one
// tenant of the legacy console. Password and AuthState are encrypted at rest
// and masked on API reads.
type TenantCredentials struct {
	TenantKey string `json:"tenant_key"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`

	// AuthState is previously captured session state (cookie jar JSON) used
	// to seed a fresh engine and skip the interactive login when still valid.
	AuthState string `json:"auth_state,omitempty"`
}

var ErrCredentialsNotFound = errors.New("tenant credentials not found")

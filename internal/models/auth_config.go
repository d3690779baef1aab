package models

import "time"

// AuthConfig configures dashboard-user authentication. Tokens are HS256
// JWTs signed with SecretKey.
type AuthConfig struct {
	SecretKey          string `json:"secret_key" yaml:"secret_key"`
	TokenExpiryMinutes int    `json:"token_expiry_minutes,omitzero" yaml:"token_expiry_minutes"`
}

// DefaultTokenExpiry matches the access-token lifetime issued at login.
const DefaultTokenExpiry = 30 * time.Minute

func (c *AuthConfig) Expiry() time.Duration {
	if c == nil || c.TokenExpiryMinutes <= 0 {
		return DefaultTokenExpiry
	}
	return time.Duration(c.TokenExpiryMinutes) * time.Minute
}

package domain

import (
	"context"
	"time"
)

// ConsentPolicy decides whether an authorization request needs an explicit
// user consent step.
type ConsentPolicy int

const (
	// RequireUserConsent holds the request as a PendingAuthorization until
	// the user approves or denies.
	RequireUserConsent ConsentPolicy = iota
	// AutoApprove issues the authorization code immediately. Reserved for
	// internal first-party clients.
	AutoApprove
)

// Client represents a registered OAuth2 client application. Client records
// are maintained by admin tooling; the authorization server core only reads
// them.
type Client struct {
	ID                string        `bson:"client_id" json:"client_id"`
	SecretHash        string        `bson:"secret_hash" json:"-"`
	Name              string        `bson:"client_name" json:"client_name"`
	RedirectURIs      []string      `bson:"redirect_uris" json:"redirect_uris"`
	AllowedScopes     []string      `bson:"allowed_scopes" json:"allowed_scopes"`
	GrantTypes        []string      `bson:"grant_types" json:"grant_types"`
	TokenEndpointAuth string        `bson:"token_endpoint_auth_method" json:"token_endpoint_auth_method"`
	RequirePKCE       bool          `bson:"require_pkce" json:"require_pkce"`
	IsInternal        bool          `bson:"is_internal" json:"is_internal"`
	AutoApprove       bool          `bson:"auto_approve" json:"auto_approve"`
	AccessTokenTTL    time.Duration `bson:"access_token_ttl" json:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `bson:"refresh_token_ttl" json:"refresh_token_ttl"`
	CreatedAt         time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at" json:"updated_at"`
}

// ConsentPolicy resolves the auto-approve flag combination once per request.
func (c *Client) ConsentPolicy() ConsentPolicy {
	if c.IsInternal && c.AutoApprove {
		return AutoApprove
	}
	return RequireUserConsent
}

// HasRedirectURI reports whether uri is registered for the client.
func (c *Client) HasRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// AllowsScopes reports whether every requested scope is allowed.
func (c *Client) AllowsScopes(scopes []string) bool {
	allowed := make(map[string]bool, len(c.AllowedScopes))
	for _, s := range c.AllowedScopes {
		allowed[s] = true
	}
	for _, s := range scopes {
		if !allowed[s] {
			return false
		}
	}
	return true
}

// ClientRepository provides read access to registered clients.
type ClientRepository interface {
	GetClient(ctx context.Context, clientID string) (*Client, error)
	CreateClient(ctx context.Context, client *Client) error
}

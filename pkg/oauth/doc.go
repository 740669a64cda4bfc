// Package oauth provides the OAuth 2.1 types and client used to discover an
// upstream's metadata, run the PKCE exchange, and refresh an already-issued
// token when a request comes back 401 (spec §4.1).
//
// # Core Components
//
//   - Token: OAuth token representation with expiry checking
//   - Metadata: OAuth/OIDC server metadata (RFC 8414)
//   - AuthChallenge: parsed WWW-Authenticate header information
//   - PKCE: Proof Key for Code Exchange generation (RFC 7636)
//   - Client: OAuth client for metadata discovery and token operations
//
// Usage:
//
//	import "mcpmux/pkg/oauth"
//
//	client := oauth.NewClient()
//	token, err := client.RefreshToken(ctx, tokenEndpoint, refreshToken, clientID)
package oauth

// Package auth provides the shared authentication status types: one
// UpstreamAuthStatus per configured upstream, with an optional ChallengeInfo
// describing the OAuth challenge an upstream raised on its last 401.
// upstream.OAuthRefresher records an UpstreamAuthStatus per refreshed
// upstream; no MCP resource serves these types.
package auth

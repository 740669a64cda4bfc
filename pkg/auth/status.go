package auth

// StatusResponse is the structured authentication state, one entry per
// configured upstream. No MCP resource in this module returns it.
type StatusResponse struct {
	UpstreamAuths []UpstreamAuthStatus `json:"upstream_auths"`
}

// UpstreamAuthStatus describes the authentication state of one upstream MCP
// server connection.
type UpstreamAuthStatus struct {
	// UpstreamName is the name the upstream was configured under.
	UpstreamName string `json:"upstream_name"`

	// Status is one of: "connected", "auth_required", "error", "disconnected", "initializing"
	Status string `json:"status"`

	// AuthChallenge is present when Status == "auth_required"
	AuthChallenge *ChallengeInfo `json:"auth_challenge,omitempty"`

	// Error is present when Status == "error"
	Error string `json:"error,omitempty"`
}

// ChallengeInfo describes an authentication challenge raised by an upstream's
// 401 response, per the narrow OAuth-refresh collaborator contract.
type ChallengeInfo struct {
	// Issuer is the IdP URL that will issue tokens.
	Issuer string `json:"issuer"`

	// Scope is the OAuth scope required.
	Scope string `json:"scope,omitempty"`

	// AuthToolName is the tool to call for browser-based auth, when the
	// upstream requires an interactive grant the refresh collaborator
	// cannot complete unattended.
	AuthToolName string `json:"auth_tool_name"`
}

package upstream

import (
	"context"
	"sync"

	"golang.org/x/oauth2"

	"mcpmux/pkg/auth"
	"mcpmux/pkg/logging"
	"mcpmux/pkg/oauth"
)

// CredentialProvider is the narrow collaborator contract the connection
// manager needs from an OAuth integration: given a 401 from an http/sse
// upstream, refresh its credentials and return the headers to retry with.
// This is deliberately not a full authorization-code flow — issuing the
// initial grant is out of scope (spec §1/§9); only refreshing an
// already-issued token is modeled here.
type CredentialProvider interface {
	Refresh(ctx context.Context, upstreamName string) (headers map[string]string, err error)
}

// OAuthRefresher adapts pkg/oauth's refresh-token exchange into a
// CredentialProvider, one token source per upstream name. Concurrent 401s
// for the same upstream coalesce onto a single in-flight refresh via a
// per-name mutex, matching the "exactly one recreation in flight" rule of
// spec §4.1.
type OAuthRefresher struct {
	client *oauth.Client

	mu      sync.Mutex
	sources map[string]*tokenSource
}

// TokenSource names where to refresh an upstream's credentials from.
type TokenSource struct {
	Issuer        string
	TokenEndpoint string
	ClientID      string
	RefreshToken  string
}

// refreshTokenSource satisfies oauth2.TokenSource by delegating the actual
// HTTP exchange to pkg/oauth.Client. Wrapping it in oauth2.ReuseTokenSource
// means a 401 that arrives before the previously issued access token's
// Expiry is reached reuses that token instead of hitting the token endpoint
// again.
type refreshTokenSource struct {
	ctx           context.Context
	client        *oauth.Client
	tokenEndpoint string
	clientID      string
	refreshToken  string
}

func (s *refreshTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.client.RefreshToken(s.ctx, s.tokenEndpoint, s.refreshToken, s.clientID)
	if err != nil {
		return nil, err
	}
	s.refreshToken = tok.RefreshToken
	return &oauth2.Token{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.ExpiresAt,
	}, nil
}

type tokenSource struct {
	mu     sync.Mutex
	raw    *refreshTokenSource
	reuse  oauth2.TokenSource
	status auth.UpstreamAuthStatus
}

// NewOAuthRefresher builds a refresher backed by the shared OAuth client.
func NewOAuthRefresher(client *oauth.Client) *OAuthRefresher {
	return &OAuthRefresher{client: client, sources: make(map[string]*tokenSource)}
}

// Register associates a token source with an upstream name, so a later 401
// on that upstream's Connection knows what to refresh.
func (r *OAuthRefresher) Register(upstreamName string, src TokenSource) {
	r.mu.Lock()
	defer r.mu.Unlock()

	raw := &refreshTokenSource{
		ctx:           context.Background(),
		client:        r.client,
		tokenEndpoint: src.TokenEndpoint,
		clientID:      src.ClientID,
		refreshToken:  src.RefreshToken,
	}
	r.sources[upstreamName] = &tokenSource{raw: raw, reuse: oauth2.ReuseTokenSource(nil, raw)}
}

// Refresh exchanges the upstream's stored refresh token for a new access
// token and returns the Authorization header to retry the connection with.
func (r *OAuthRefresher) Refresh(ctx context.Context, upstreamName string) (map[string]string, error) {
	r.mu.Lock()
	ts, ok := r.sources[upstreamName]
	r.mu.Unlock()
	if !ok {
		return nil, nil
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.raw.ctx = ctx
	token, err := ts.reuse.Token()
	if err != nil {
		ts.status = auth.UpstreamAuthStatus{UpstreamName: upstreamName, Status: "auth_required", Error: err.Error()}
		logging.Audit(logging.AuditEvent{Action: "oauth_refresh", Outcome: "failure", Target: upstreamName, Error: err.Error()})
		return nil, err
	}

	ts.status = auth.UpstreamAuthStatus{UpstreamName: upstreamName, Status: "connected"}
	logging.Audit(logging.AuditEvent{Action: "oauth_refresh", Outcome: "success", Target: upstreamName})

	return map[string]string{"Authorization": "Bearer " + token.AccessToken}, nil
}

// Status returns the last auth status Refresh recorded for an upstream, and
// false if no token source is registered for it.
func (r *OAuthRefresher) Status(upstreamName string) (auth.UpstreamAuthStatus, bool) {
	r.mu.Lock()
	ts, ok := r.sources[upstreamName]
	r.mu.Unlock()
	if !ok {
		return auth.UpstreamAuthStatus{}, false
	}
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.status, true
}

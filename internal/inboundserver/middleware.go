package inboundserver

import (
	"context"
	"net/http"

	"mcpmux/pkg/mcperr"
)

type pendingPredicateKey struct{}

// queryFilterMiddleware resolves preset/tag-filter/tags/filter (spec §6)
// once per request and stashes the compiled predicate in the request
// context. mcp-go only assigns/resolves a connection's MCP session id
// partway through its own handshake, so the predicate can't be applied to a
// *router.InboundSession here; instead every tool/resource/prompt handler
// re-applies whatever predicate rode in on its context before dispatching,
// which is an idempotent SetPredicate call.
func (s *Server) queryFilterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resolved, err := s.resolveQueryFilter(r.URL.Query())
		if err != nil {
			writeFilterError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), pendingPredicateKey{}, resolved)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeFilterError(w http.ResponseWriter, err error) {
	kind := mcperr.KindOf(err)
	http.Error(w, err.Error(), kind.HTTPStatus())
}

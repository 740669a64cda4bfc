// Package inbound starts the inbound HTTP listener(s) for the aggregator,
// transparently picking up systemd socket activation when present.
package inbound

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/coreos/go-systemd/v22/activation"

	"mcpmux/pkg/logging"
)

// HTTPServer wraps one or more *http.Server, one per systemd-provided
// listener, or a single address-bound server when not socket-activated.
type HTTPServer struct {
	servers []*http.Server
	errCh   chan error
}

// ServeHTTP starts handler on addr, or on every systemd LISTEN_FDS listener
// if the process was socket-activated, matching the teacher's
// `createHTTPMux`/`ListenersWithNames` startup sequence.
func ServeHTTP(addr string, handler http.Handler) (*HTTPServer, error) {
	listeners, err := activation.Listeners()
	if err != nil {
		logging.Warn("inbound", "failed to query systemd listeners: %v", err)
		listeners = nil
	}

	hs := &HTTPServer{errCh: make(chan error, len(listeners)+1)}

	if len(listeners) > 0 {
		logging.Info("inbound", "systemd socket activation detected, using %d listener(s)", len(listeners))
		for i, l := range listeners {
			srv := &http.Server{Handler: handler}
			hs.servers = append(hs.servers, srv)
			go func(srv *http.Server, l net.Listener, index int) {
				if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
					hs.errCh <- fmt.Errorf("listener %d: %w", index, err)
				}
			}(srv, l, i)
		}
		return hs, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", addr, err)
	}
	srv := &http.Server{Handler: handler}
	hs.servers = append(hs.servers, srv)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			hs.errCh <- err
		}
	}()
	return hs, nil
}

// Errors returns the channel on which a listener's unexpected exit is
// reported.
func (s *HTTPServer) Errors() <-chan error {
	return s.errCh
}

// Shutdown gracefully stops every underlying *http.Server.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

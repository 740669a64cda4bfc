package transport

import (
	"fmt"

	"mcpmux/internal/configwatch"
)

// New builds the Client adapter appropriate for a descriptor's transport
// type.
func New(d configwatch.UpstreamDescriptor) (Client, error) {
	switch d.Type {
	case configwatch.TransportStdio:
		return NewStdioAdapter(d.Command, d.Args, d.Env, d.Cwd), nil
	case configwatch.TransportHTTP:
		return NewStreamableHTTPAdapter(d.URL, d.Headers), nil
	case configwatch.TransportSSE:
		return NewSSEAdapter(d.URL, d.Headers), nil
	default:
		return nil, fmt.Errorf("unknown transport type %q for upstream %q", d.Type, d.Name)
	}
}

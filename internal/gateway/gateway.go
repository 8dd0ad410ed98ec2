package gateway

import (
	"context"

	"github.com/roach88/ffgraph/internal/session"
)

// Gateway is the session.Gateway of the host: documents through Files,
// identifiers through Resolver.
type Gateway struct {
	*Files
	resolver *Resolver
}

var _ session.Gateway = (*Gateway)(nil)

// New combines files and resolver into a session gateway.
func New(files *Files, resolver *Resolver) *Gateway {
	return &Gateway{Files: files, resolver: resolver}
}

// ResolveIdentifier implements session.Gateway.
func (g *Gateway) ResolveIdentifier(ctx context.Context, sink session.ProgressSink, identifier string) error {
	_, err := g.resolver.Resolve(ctx, identifier, sink.Send)
	return err
}

// Resolver returns the identifier resolver.
func (g *Gateway) Resolver() *Resolver {
	return g.resolver
}

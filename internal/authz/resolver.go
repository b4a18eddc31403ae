package authz

import (
	"context"
	"net/http"

	"github.com/sentinelops/incident-core/internal/identity"
	"github.com/sentinelops/incident-core/internal/infrastructure/logging"
)

// Resolver turns request credentials into session data via the identity
// provider. Every call hits the provider fresh; nothing is cached across
// requests.
type Resolver struct {
	provider identity.Provider
	logger   *logging.Logger
}

// NewResolver creates a Resolver backed by the given provider.
func NewResolver(provider identity.Provider, logger *logging.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		logger:   logger.With("component", "authz"),
	}
}

// Resolve resolves the request's credentials strictly.
// (nil, nil) means anonymous; a non-nil error means the provider itself
// failed and the caller must fail closed.
func (rs *Resolver) Resolve(ctx context.Context, r *http.Request) (*identity.SessionData, error) {
	return rs.provider.ResolveSession(ctx, r)
}

// ResolveOptional resolves the request's credentials leniently: provider
// faults are logged and treated as anonymous. Used by checks that must
// never block a request.
func (rs *Resolver) ResolveOptional(ctx context.Context, r *http.Request) *identity.SessionData {
	data, err := rs.provider.ResolveSession(ctx, r)
	if err != nil {
		rs.logger.Warn("optional session resolution failed, continuing anonymous",
			"error", err, "path", r.URL.Path)
		return nil
	}
	return data
}

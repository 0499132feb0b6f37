package dbflow

import (
	"go.uber.org/zap"

	"github.com/BaSui01/dbflow/auth"
	"github.com/BaSui01/dbflow/pool"
	"github.com/BaSui01/dbflow/retry"
	"github.com/BaSui01/dbflow/types"
)

// Option configures the Connection created by [New].
type Option func(*Connection)

// WithPool attaches a shared connection pool. Engines are then owned by
// the pool and survive Disconnect; without a pool the facade opens a
// private engine on Connect and closes it on Disconnect.
func WithPool(p *pool.Pool) Option {
	return func(c *Connection) {
		c.pool = p
	}
}

// WithLogger sets a custom zap logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Connection) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithAuth sets the authentication descriptor resolved at Connect time.
// Resolved credentials take precedence over Username and Password in the
// connection config; an explicit ConnString bypasses resolution entirely.
func WithAuth(d types.AuthDescriptor) Option {
	return func(c *Connection) {
		c.authDesc = &d
	}
}

// WithRetryPolicy overrides the default transient-failure retry policy
// applied to dialing and raw SQL execution.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Connection) {
		c.policy = &policy
	}
}

// WithResolver substitutes the credential resolver. Facades sharing one
// resolver also share its cached encryption key material.
func WithResolver(r *auth.Resolver) Option {
	return func(c *Connection) {
		if r != nil {
			c.resolver = r
		}
	}
}

// Package dbflow provides resilient database connections on top of GORM:
// identity-keyed engine pooling with background health checks, pluggable
// credential resolution, and classified-error retry with exponential backoff.
//
// Usage:
//
//	import "github.com/BaSui01/dbflow"
//
//	conn, err := dbflow.New(config.ConnectionConfig{
//	    Type:     types.DBTypePostgres,
//	    Host:     "db.internal",
//	    Database: "app",
//	}, dbflow.WithAuth(types.NewEnvironmentAuth("APP_DB_USER", "APP_DB_PASSWORD")))
//	if err != nil { ... }
//	if err := conn.Connect(ctx); err != nil { ... }
//	defer conn.Disconnect()
//
//	session, err := conn.Session(ctx)
//
// A [Connection] is a cheap per-caller facade. Without a pool it owns a
// private engine opened on Connect and closed on Disconnect. With
// [WithPool] it borrows the shared engine for its connection identity;
// the pool owns engine lifecycle and Disconnect only drops the facade's
// references.
package dbflow

import (
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/dbflow/auth"
	"github.com/BaSui01/dbflow/config"
	"github.com/BaSui01/dbflow/dsn"
	"github.com/BaSui01/dbflow/internal/metrics"
	"github.com/BaSui01/dbflow/pool"
	"github.com/BaSui01/dbflow/retry"
	"github.com/BaSui01/dbflow/types"
)

// Version is the dbflow release version.
const Version = "0.4.0"

// Connection is the facade client code interacts with. It resolves its
// configuration into a normalized connection string, obtains an engine
// (pooled or private), and tracks its own connected state independently
// of engine lifecycle.
//
// All methods are safe for concurrent use.
type Connection struct {
	id       string
	cfg      config.ConnectionConfig
	authDesc *types.AuthDescriptor

	logger    *zap.Logger
	collector *metrics.Collector
	resolver  *auth.Resolver
	executor  *retry.Executor
	pool      *pool.Pool
	policy    *retry.Policy

	mu         sync.Mutex
	connected  bool
	connString string // normalized, resolved at Connect
	identity   dsn.Identity
	effective  config.ConnectionConfig
	engine     *gorm.DB
	factory    *gorm.DB
	sqlDB      *sql.DB // owned in private mode only
}

// New creates a connection facade for cfg. The configuration is validated
// up front unless it is entirely empty, in which case the target is
// derived from DB_* environment variables at Connect time.
//
// New performs no I/O; the first dial happens in [Connection.Connect] or
// implicitly in [Connection.Session].
func New(cfg config.ConnectionConfig, opts ...Option) (*Connection, error) {
	c := &Connection{
		id:     uuid.NewString(),
		cfg:    cfg,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if !cfg.IsZero() {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	c.logger = c.logger.With(
		zap.String("component", "connection"),
		zap.String("connection_id", c.id),
	)
	if c.pool != nil {
		// Pooled facades report through the pool's collector so the whole
		// process shares one set of metric families.
		c.collector = c.pool.Metrics()
	}
	if c.resolver == nil {
		c.resolver = auth.NewResolver(auth.WithLogger(c.logger))
	}

	policy := retry.DefaultPolicy()
	if c.policy != nil {
		policy = *c.policy
	}
	c.executor = retry.NewExecutor(policy,
		retry.WithLogger(c.logger),
		retry.WithCollector(c.collector),
	)
	return c, nil
}

// ID returns the unique identifier assigned to this facade at creation.
func (c *Connection) ID() string {
	return c.id
}

package dbflow

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BaSui01/dbflow/config"
	"github.com/BaSui01/dbflow/dsn"
	"github.com/BaSui01/dbflow/retry"
	"github.com/BaSui01/dbflow/types"
)

// probeTimeout bounds liveness pings issued by the facade itself.
const probeTimeout = 5 * time.Second

// target is a fully resolved connection destination.
type target struct {
	connString string
	extra      map[string]any
	cfg        config.ConnectionConfig
}

// Connect establishes the connection. It is idempotent: connecting an
// already-connected facade is a no-op. Configuration and credential
// resolution happen once up front and never retry; only the dial itself
// runs under the retry policy.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Connection) connectLocked(ctx context.Context) error {
	if c.connected {
		return nil
	}

	t, err := c.resolveTarget(ctx)
	if err != nil {
		return err
	}

	var (
		engine  *gorm.DB
		factory *gorm.DB
		sqlDB   *sql.DB
	)
	dial := func(ctx context.Context) error {
		if c.pool != nil {
			e, derr := c.pool.GetEngine(ctx, t.connString, t.extra)
			if derr != nil {
				return derr
			}
			f, derr := c.pool.GetSessionFactory(ctx, t.connString, t.extra)
			if derr != nil {
				return derr
			}
			engine, factory, sqlDB = e, f, nil
			return nil
		}
		e, f, db, derr := c.openPrivate(ctx, t.connString)
		if derr != nil {
			return derr
		}
		engine, factory, sqlDB = e, f, db
		return nil
	}
	if err := c.executor.Do(ctx, "connect", dial); err != nil {
		return err
	}

	c.engine, c.factory, c.sqlDB = engine, factory, sqlDB
	c.connString = t.connString
	c.identity = dsn.NewIdentity(t.connString, t.extra)
	c.effective = t.cfg
	c.connected = true
	c.logger.Info("connected",
		zap.String("conn_string", dsn.Redact(t.connString)),
		zap.Bool("pooled", c.pool != nil),
	)
	return nil
}

// resolveTarget turns the configured (or environment-derived) target into
// a normalized connection string plus the extra args that participate in
// the connection identity. Errors here are configuration or credential
// errors and are never retried.
func (c *Connection) resolveTarget(ctx context.Context) (target, error) {
	cfg := c.cfg
	if cfg.IsZero() {
		envCfg, err := config.ConnectionFromEnv()
		if err != nil {
			return target{}, err
		}
		c.logger.Debug("connection target derived from environment")
		cfg = envCfg
	}

	if cfg.ConnString != "" {
		if c.authDesc != nil {
			c.logger.Debug("explicit conn_string set, skipping credential resolution")
		}
		return target{connString: cfg.ConnString, extra: cfg.ExtraArgs(), cfg: cfg}, nil
	}

	extra := cfg.ExtraArgs()
	if c.authDesc != nil {
		params, err := c.resolver.Resolve(ctx, *c.authDesc)
		if err != nil {
			c.collector.RecordAuthResolve(string(c.authDesc.Type), "error")
			return target{}, err
		}
		c.collector.RecordAuthResolve(string(c.authDesc.Type), "success")
		if params.Username != "" {
			cfg.Username = params.Username
		}
		if params.Password != "" {
			cfg.Password = params.Password
		}
		if len(params.ConnectArgs) > 0 {
			if extra == nil {
				extra = make(map[string]any, len(params.ConnectArgs))
			}
			for k, v := range params.ConnectArgs {
				extra[k] = v
			}
		}
	}

	connString, err := dsn.Build(cfg)
	if err != nil {
		return target{}, err
	}
	return target{connString: connString, extra: extra, cfg: cfg}, nil
}

// openPrivate opens an engine owned by this facade alone, probing it once
// before handing it out.
func (c *Connection) openPrivate(ctx context.Context, connString string) (*gorm.DB, *gorm.DB, *sql.DB, error) {
	dialector, err := dsn.Dialector(connString)
	if err != nil {
		return nil, nil, nil, err
	}

	engine, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, nil, nil, retry.ClassifiedError("connect", err,
			map[string]any{"conn_string": dsn.Redact(connString)})
	}

	sqlDB, err := engine.DB()
	if err != nil {
		return nil, nil, nil, retry.ClassifiedError("connect", err, nil)
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := sqlDB.PingContext(probeCtx); err != nil {
		_ = sqlDB.Close()
		return nil, nil, nil, retry.ClassifiedError("connect", err,
			map[string]any{"conn_string": dsn.Redact(connString)})
	}

	return engine, engine.Session(&gorm.Session{NewDB: true}), sqlDB, nil
}

// Disconnect releases the facade's hold on its engine. In pooled mode the
// engine stays alive in the pool for other facades; in private mode the
// underlying connection is closed. Disconnecting an unconnected facade is
// a no-op.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}

	err := c.teardownLocked()
	c.logger.Info("disconnected", zap.Bool("pooled", c.pool != nil))
	if err != nil {
		return types.NewConnectionError("failed to close database connection").WithCause(err)
	}
	return nil
}

// teardownLocked drops engine references and closes a privately owned
// connection. Callers must hold c.mu.
func (c *Connection) teardownLocked() error {
	var err error
	if c.sqlDB != nil {
		err = c.sqlDB.Close()
	}
	c.engine, c.factory, c.sqlDB = nil, nil, nil
	c.connected = false
	return err
}

// ensureConnected returns the session factory, connecting first if needed.
func (c *Connection) ensureConnected(ctx context.Context) (*gorm.DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}
	return c.factory, nil
}

// Session returns a fresh unit-of-work session bound to ctx. The facade
// connects automatically if it is not connected yet. Sessions derived
// from the same engine are independent; discard them after use.
func (c *Connection) Session(ctx context.Context) (*gorm.DB, error) {
	factory, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}
	return factory.Session(&gorm.Session{Context: ctx}), nil
}

// RawResult is the outcome of ExecuteRawSQL. Rows is populated only for
// row-returning statements; RowsAffected counts returned rows for queries
// and affected rows for statements.
type RawResult struct {
	Rows         []map[string]any `json:"rows,omitempty"`
	RowsAffected int64            `json:"rows_affected"`
}

// rowPrefixes marks statements whose results arrive as a row set.
var rowPrefixes = []string{"SELECT", "WITH", "SHOW", "PRAGMA", "EXPLAIN", "DESCRIBE", "VALUES"}

func returnsRows(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, p := range rowPrefixes {
		if strings.HasPrefix(q, p) {
			return true
		}
	}
	return strings.Contains(q, " RETURNING ")
}

func truncateQuery(q string) string {
	const max = 120
	q = strings.TrimSpace(q)
	if len(q) <= max {
		return q
	}
	return q[:max] + "..."
}

// ExecuteRawSQL runs a raw statement with positional arguments. Row sets
// come back as generic maps keyed by column name. The statement runs under
// the retry policy, so only transient connection failures are reattempted;
// integrity and syntax errors propagate immediately.
//
// The facade connects automatically if it is not connected yet.
func (c *Connection) ExecuteRawSQL(ctx context.Context, query string, args ...any) (*RawResult, error) {
	factory, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	return retry.DoValue(c.executor, ctx, "execute_raw_sql", func(ctx context.Context) (*RawResult, error) {
		session := factory.Session(&gorm.Session{Context: ctx})
		if returnsRows(query) {
			var rows []map[string]any
			tx := session.Raw(query, args...).Scan(&rows)
			if tx.Error != nil {
				return nil, retry.ClassifiedError("execute_raw_sql", tx.Error,
					map[string]any{"query": truncateQuery(query)})
			}
			return &RawResult{Rows: rows, RowsAffected: tx.RowsAffected}, nil
		}
		tx := session.Exec(query, args...)
		if tx.Error != nil {
			return nil, retry.ClassifiedError("execute_raw_sql", tx.Error,
				map[string]any{"query": truncateQuery(query)})
		}
		return &RawResult{RowsAffected: tx.RowsAffected}, nil
	})
}

// IsConnected reports liveness with an active probe, not just tracked
// state. A failed probe flips the facade to disconnected and closes a
// privately owned engine, so the next operation reconnects cleanly.
func (c *Connection) IsConnected(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.engine == nil {
		return false
	}

	sqlDB, err := c.engine.DB()
	if err != nil {
		_ = c.teardownLocked()
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := sqlDB.PingContext(probeCtx); err != nil {
		c.logger.Warn("liveness probe failed, marking disconnected", zap.Error(err))
		_ = c.teardownLocked()
		return false
	}
	return true
}

// ConnectionInfo is a point-in-time description of a facade, safe to log
// or serialize: the connection string is redacted.
type ConnectionInfo struct {
	ID         string       `json:"id"`
	Type       types.DBType `json:"type,omitempty"`
	Host       string       `json:"host,omitempty"`
	Port       int          `json:"port,omitempty"`
	Database   string       `json:"database,omitempty"`
	Pooled     bool         `json:"pooled"`
	Connected  bool         `json:"connected"`
	ConnString string       `json:"conn_string,omitempty"`
}

// Info describes the facade without touching the database. Connected
// reflects tracked state only; use [Connection.IsConnected] for a live
// probe.
func (c *Connection) Info() ConnectionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	cfg := c.cfg
	if !c.effective.IsZero() {
		cfg = c.effective
	}
	info := ConnectionInfo{
		ID:        c.id,
		Type:      cfg.Type,
		Host:      cfg.Host,
		Database:  cfg.Database,
		Pooled:    c.pool != nil,
		Connected: c.connected,
	}
	if cfg.Type != "" {
		info.Port = cfg.EffectivePort()
	}
	if c.connString != "" {
		info.ConnString = dsn.Redact(c.connString)
		if info.Type == "" {
			if family, err := dsn.Family(c.connString); err == nil {
				info.Type = family
			}
		}
	}
	return info
}

// String implements fmt.Stringer with the redacted facade description.
func (c *Connection) String() string {
	info := c.Info()
	state := "disconnected"
	if info.Connected {
		state = "connected"
	}
	if info.ConnString != "" {
		return fmt.Sprintf("Connection(%s, %s, %s)", info.ID, info.ConnString, state)
	}
	return fmt.Sprintf("Connection(%s, %s)", info.ID, state)
}

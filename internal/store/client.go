// Package store executes query-pipeline descriptors against Postgres and
// exposes the composed Client every service talks to. The policy chain is
// built once at startup in a fixed, significant order: soft-delete rewrites
// arguments first, tenant scoping second, and redaction strips results
// closest to the real call so stripped payloads flow back up unmodified.
package store

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/habberrih/manara/internal/query"
)

// Config carries the policy configuration for a Client.
type Config struct {
	SoftDelete  query.SoftDeleteConfig
	TenantScope query.TenantScopeConfig
	Redaction   query.RedactionConfig
}

// DefaultConfig scopes every soft-deletable entity, tenant-scopes the
// resources owned by an organization, and redacts user credentials.
func DefaultConfig() Config {
	return Config{
		SoftDelete: query.SoftDeleteConfig{
			Entities: []string{"user", "organization", "membership", "api_key", "subscription"},
		},
		TenantScope: query.TenantScopeConfig{
			Entities: []string{"membership", "api_key", "subscription"},
		},
		Redaction: query.RedactionConfig{Entity: "user"},
	}
}

// Client is the data-access facade. All reads and writes issued through it
// pass the interception pipeline.
type Client struct {
	db      *gorm.DB
	cfg     Config
	log     *zap.Logger
	handler query.Handler
}

// NewClient composes the pipeline around a GORM-backed executor.
func NewClient(db *gorm.DB, cfg Config, log *zap.Logger) *Client {
	exec := NewExecutor(db, log)
	return &Client{
		db:      db,
		cfg:     cfg,
		log:     log,
		handler: compose(exec.Exec, cfg),
	}
}

// NewClientWithHandler composes the pipeline around an arbitrary executor.
// Tests use it with the in-memory storetest executor.
func NewClientWithHandler(exec query.Handler, cfg Config, log *zap.Logger) *Client {
	return &Client{cfg: cfg, log: log, handler: compose(exec, cfg)}
}

func compose(exec query.Handler, cfg Config) query.Handler {
	return query.Chain(exec,
		query.NewSoftDelete(cfg.SoftDelete),
		query.NewTenantScope(cfg.TenantScope),
		query.NewRedaction(cfg.Redaction),
	)
}

// Transaction runs fn with a Client bound to one database transaction. The
// pipeline is recomposed over the transactional handle so every call inside
// fn keeps the same policy semantics.
func (c *Client) Transaction(ctx context.Context, fn func(tx *Client) error) error {
	if c.db == nil {
		// Handler-backed clients (tests) have no transactional handle.
		return fn(c)
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewClient(tx, c.cfg, c.log))
	})
}

// Exec runs a raw descriptor through the pipeline.
func (c *Client) Exec(ctx context.Context, d *query.Descriptor) (*query.Result, error) {
	return c.handler(ctx, d)
}

// FindUnique looks a row up by a unique key. It returns nil without error
// when no visible row matches.
func (c *Client) FindUnique(ctx context.Context, entity string, args query.Args) (query.Record, error) {
	res, err := c.Exec(ctx, &query.Descriptor{Entity: entity, Operation: query.OpFindUnique, Args: args})
	if err != nil {
		return nil, err
	}
	return res.One(), nil
}

// FindFirst returns the first visible row matching the filter, or nil.
func (c *Client) FindFirst(ctx context.Context, entity string, args query.Args) (query.Record, error) {
	res, err := c.Exec(ctx, &query.Descriptor{Entity: entity, Operation: query.OpFindFirst, Args: args})
	if err != nil {
		return nil, err
	}
	return res.One(), nil
}

// FindMany returns all visible rows matching the filter.
func (c *Client) FindMany(ctx context.Context, entity string, args query.Args) ([]query.Record, error) {
	res, err := c.Exec(ctx, &query.Descriptor{Entity: entity, Operation: query.OpFindMany, Args: args})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Count counts visible rows matching the filter.
func (c *Client) Count(ctx context.Context, entity string, args query.Args) (int64, error) {
	res, err := c.Exec(ctx, &query.Descriptor{Entity: entity, Operation: query.OpCount, Args: args})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// Create inserts one record and echoes the stored row.
func (c *Client) Create(ctx context.Context, entity string, data query.Record) (query.Record, error) {
	res, err := c.Exec(ctx, &query.Descriptor{
		Entity:    entity,
		Operation: query.OpCreate,
		Args:      query.Args{Data: []query.Record{data}},
	})
	if err != nil {
		return nil, err
	}
	return res.One(), nil
}

// Update rewrites the row(s) matching the filter and echoes the first one.
func (c *Client) Update(ctx context.Context, entity string, filter query.Filter, data query.Record) (query.Record, error) {
	res, err := c.Exec(ctx, &query.Descriptor{
		Entity:    entity,
		Operation: query.OpUpdate,
		Args:      query.Args{Filter: filter, Data: []query.Record{data}},
	})
	if err != nil {
		return nil, err
	}
	return res.One(), nil
}

// UpdateMany rewrites all rows matching the filter.
func (c *Client) UpdateMany(ctx context.Context, entity string, filter query.Filter, data query.Record) (int64, error) {
	res, err := c.Exec(ctx, &query.Descriptor{
		Entity:    entity,
		Operation: query.OpUpdateMany,
		Args:      query.Args{Filter: filter, Data: []query.Record{data}},
	})
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}

package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/habberrih/manara/internal/query"
)

// Executor runs pipeline descriptors against the database through GORM.
// It sits at the innermost end of the policy chain: by the time a descriptor
// arrives here it has already been soft-delete filtered and tenant scoped.
type Executor struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewExecutor wraps a GORM handle.
func NewExecutor(db *gorm.DB, log *zap.Logger) *Executor {
	return &Executor{db: db, log: log}
}

// Exec dispatches one descriptor.
func (e *Executor) Exec(ctx context.Context, d *query.Descriptor) (*query.Result, error) {
	ent, ok := Lookup(d.Entity)
	if !ok {
		return nil, fmt.Errorf("store: unknown entity %q", d.Entity)
	}

	var res *query.Result
	var err error
	switch d.Operation {
	case query.OpFindUnique:
		res, err = e.findUnique(ctx, ent, d.Args)
	case query.OpFindFirst:
		args := d.Args
		args.Limit = 1
		res, err = e.findMany(ctx, ent, args)
	case query.OpFindMany:
		res, err = e.findMany(ctx, ent, d.Args)
	case query.OpCount:
		res, err = e.count(ctx, ent, d.Args)
	case query.OpCreate, query.OpCreateMany:
		res, err = e.create(ctx, ent, d)
	case query.OpUpdate:
		res, err = e.update(ctx, ent, d.Args, true)
	case query.OpUpdateMany:
		res, err = e.update(ctx, ent, d.Args, false)
	case query.OpDelete, query.OpDeleteMany:
		// Rows leave visibility through the soft-delete marker; physical
		// deletion is not reachable through the pipeline.
		return nil, fmt.Errorf("store: hard delete on %q is not supported, update the delete marker instead", ent.Name)
	default:
		return nil, fmt.Errorf("store: unknown operation %q", d.Operation)
	}
	if err != nil {
		return nil, translateError(e.log, err)
	}
	return res, nil
}

func (e *Executor) findUnique(ctx context.Context, ent Entity, args query.Args) (*query.Result, error) {
	if err := ValidateUniqueShape(ent, args.Filter); err != nil {
		return nil, err
	}
	args.Limit = 1
	return e.findMany(ctx, ent, args)
}

func (e *Executor) findMany(ctx context.Context, ent Entity, args query.Args) (*query.Result, error) {
	tx, err := e.buildQuery(ctx, ent, args)
	if err != nil {
		return nil, err
	}
	if err := validateColumns(args.Select); err != nil {
		return nil, err
	}
	if len(args.Select) > 0 {
		tx = tx.Select(args.Select)
	}
	if err := validateOrderBy(args.OrderBy); err != nil {
		return nil, err
	}
	if args.OrderBy != "" {
		tx = tx.Order(args.OrderBy)
	}
	if args.Limit > 0 {
		tx = tx.Limit(args.Limit)
	}
	if args.Offset > 0 {
		tx = tx.Offset(args.Offset)
	}

	var rows []map[string]any
	if err := tx.Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]query.Record, len(rows))
	for i, row := range rows {
		records[i] = query.Record(row)
	}
	return &query.Result{Records: records}, nil
}

func (e *Executor) count(ctx context.Context, ent Entity, args query.Args) (*query.Result, error) {
	tx, err := e.buildQuery(ctx, ent, args)
	if err != nil {
		return nil, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return nil, err
	}
	return &query.Result{Count: n}, nil
}

func (e *Executor) create(ctx context.Context, ent Entity, d *query.Descriptor) (*query.Result, error) {
	now := time.Now().UTC()
	rows := make([]map[string]any, len(d.Args.Data))
	for i, rec := range d.Args.Data {
		row := map[string]any(rec.Clone())
		row["created_at"] = now
		row["updated_at"] = now
		rows[i] = row
	}

	tx := e.db.WithContext(ctx).Table(ent.Table)
	if err := tx.Create(rows).Error; err != nil {
		return nil, err
	}

	// GORM does not backfill generated ids into maps, so single creates are
	// re-read through a natural unique key when the data carries one.
	if d.Operation == query.OpCreate && len(rows) == 1 {
		if f := naturalKeyFilter(ent, rows[0]); f != nil {
			echoed, err := e.findMany(ctx, ent, query.Args{Filter: f, Limit: 1})
			if err != nil {
				return nil, err
			}
			if len(echoed.Records) == 1 {
				echoed.RowsAffected = 1
				return echoed, nil
			}
		}
	}

	records := make([]query.Record, len(rows))
	for i, row := range rows {
		records[i] = query.Record(row)
	}
	return &query.Result{Records: records, RowsAffected: int64(len(rows))}, nil
}

func (e *Executor) update(ctx context.Context, ent Entity, args query.Args, echo bool) (*query.Result, error) {
	if len(args.Data) != 1 {
		return nil, fmt.Errorf("store: update on %q requires exactly one data record", ent.Name)
	}
	sql, sqlArgs, err := translateFilter(args.Filter)
	if err != nil {
		return nil, err
	}
	if sql == "" {
		return nil, fmt.Errorf("store: refusing unfiltered update on %q", ent.Name)
	}

	values := map[string]any(args.Data[0].Clone())
	values["updated_at"] = time.Now().UTC()

	res := e.db.WithContext(ctx).Table(ent.Table).Where(sql, sqlArgs...).Updates(values)
	if res.Error != nil {
		return nil, res.Error
	}

	out := &query.Result{RowsAffected: res.RowsAffected}
	if echo && res.RowsAffected > 0 {
		echoed, err := e.findMany(ctx, ent, query.Args{Filter: args.Filter, Limit: 1})
		if err != nil {
			return nil, err
		}
		out.Records = echoed.Records
	}
	return out, nil
}

func (e *Executor) buildQuery(ctx context.Context, ent Entity, args query.Args) (*gorm.DB, error) {
	sql, sqlArgs, err := translateFilter(args.Filter)
	if err != nil {
		return nil, err
	}
	tx := e.db.WithContext(ctx).Table(ent.Table)
	if sql != "" {
		tx = tx.Where(sql, sqlArgs...)
	}
	return tx, nil
}

// naturalKeyFilter builds a filter over the first non-id unique key fully
// present in the row, or nil when the row has none.
func naturalKeyFilter(ent Entity, row map[string]any) query.Filter {
	for _, key := range ent.UniqueKeys {
		if len(key) == 1 && key[0] == "id" {
			continue
		}
		conds := make(query.And, 0, len(key))
		covered := true
		for _, col := range key {
			v, ok := row[col]
			if !ok || v == nil {
				covered = false
				break
			}
			conds = append(conds, query.Eq(col, v))
		}
		if covered {
			return conds
		}
	}
	return nil
}

package query

import (
	"context"
	"errors"
)

// SoftDeleteConfig configures the soft-delete read filter.
type SoftDeleteConfig struct {
	// Field is the nullable deletion-timestamp column. Defaults to "deleted_at".
	Field string
	// Entities limits the policy to the named entities. Empty applies to all.
	Entities []string
	// Operations limits which operations are filtered. Defaults to
	// find_unique, find_first, find_many and count.
	Operations []Operation
}

// SoftDelete hides soft-deleted rows from reads unless the caller's filter
// explicitly references the deletion column.
type SoftDelete struct {
	field    string
	entities map[string]struct{}
	readOps  map[Operation]struct{}
}

// NewSoftDelete builds the policy from its configuration.
func NewSoftDelete(cfg SoftDeleteConfig) *SoftDelete {
	field := cfg.Field
	if field == "" {
		field = "deleted_at"
	}
	ops := cfg.Operations
	if len(ops) == 0 {
		ops = []Operation{OpFindUnique, OpFindFirst, OpFindMany, OpCount}
	}
	p := &SoftDelete{
		field:   field,
		readOps: make(map[Operation]struct{}, len(ops)),
	}
	for _, op := range ops {
		p.readOps[op] = struct{}{}
	}
	if len(cfg.Entities) > 0 {
		p.entities = make(map[string]struct{}, len(cfg.Entities))
		for _, e := range cfg.Entities {
			p.entities[e] = struct{}{}
		}
	}
	return p
}

func (p *SoftDelete) Name() string { return "soft_delete" }

func (p *SoftDelete) Handle(ctx context.Context, d *Descriptor, next Handler) (*Result, error) {
	if !p.applies(d) {
		return next(ctx, d)
	}

	// The caller mentioning the deletion column anywhere wins over the
	// implicit filter.
	if References(d.Args.Filter, p.field) {
		return next(ctx, d)
	}

	if d.Operation == OpFindUnique {
		return p.findUnique(ctx, d, next)
	}

	scoped := *d
	scoped.Args.Filter = MergeAnd(d.Args.Filter, IsNull(p.field))
	return next(ctx, &scoped)
}

// findUnique optimistically adds the deletion condition alongside the unique
// key. Executors whose unique-lookup contract rejects that shape signal
// ErrInvalidUniqueShape, in which case the lookup is retried as a find_first
// with an AND-combined filter. The retry goes through next, not through this
// policy again, so it cannot recurse.
func (p *SoftDelete) findUnique(ctx context.Context, d *Descriptor, next Handler) (*Result, error) {
	optimistic := *d
	optimistic.Args.Filter = MergeAnd(d.Args.Filter, IsNull(p.field))

	res, err := next(ctx, &optimistic)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrInvalidUniqueShape) {
		return nil, err
	}

	fallback := *d
	fallback.Operation = OpFindFirst
	fallback.Args.Filter = MergeAnd(d.Args.Filter, IsNull(p.field))
	fallback.Args.Limit = 1
	return next(ctx, &fallback)
}

func (p *SoftDelete) applies(d *Descriptor) bool {
	if _, ok := p.readOps[d.Operation]; !ok {
		return false
	}
	if p.entities == nil {
		return true
	}
	_, ok := p.entities[d.Entity]
	return ok
}

package query

import (
	"context"
	"fmt"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/tenant"
)

// TenantScopeConfig configures tenant scoping of shared tables.
type TenantScopeConfig struct {
	// Field is the owning-tenant column. Defaults to "organization_id".
	Field string
	// Entities limits the policy to the named entities. Empty applies to all.
	Entities []string
}

// TenantScope constrains reads and scoped writes to the organization bound
// in the request context, and stamps or verifies the tenant column on
// creates. With no bound organization the policy is a no-op, which is how
// system and background operations stay tenant-agnostic.
type TenantScope struct {
	field    string
	entities map[string]struct{}
}

// NewTenantScope builds the policy from its configuration.
func NewTenantScope(cfg TenantScopeConfig) *TenantScope {
	field := cfg.Field
	if field == "" {
		field = "organization_id"
	}
	p := &TenantScope{field: field}
	if len(cfg.Entities) > 0 {
		p.entities = make(map[string]struct{}, len(cfg.Entities))
		for _, e := range cfg.Entities {
			p.entities[e] = struct{}{}
		}
	}
	return p
}

func (p *TenantScope) Name() string { return "tenant_scope" }

func (p *TenantScope) Handle(ctx context.Context, d *Descriptor, next Handler) (*Result, error) {
	if p.entities != nil {
		if _, ok := p.entities[d.Entity]; !ok {
			return next(ctx, d)
		}
	}

	orgID, bound := tenant.OrgID(ctx)
	if !bound {
		return next(ctx, d)
	}

	switch d.Operation {
	case OpFindUnique, OpFindFirst, OpFindMany, OpCount, OpUpdateMany, OpDeleteMany:
		scoped := *d
		scoped.Args.Filter = MergeAnd(d.Args.Filter, Eq(p.field, orgID))
		return next(ctx, &scoped)

	case OpCreate, OpCreateMany:
		stamped := *d
		data := make([]Record, len(d.Args.Data))
		for i, rec := range d.Args.Data {
			out, err := p.stamp(rec, orgID, d.Entity)
			if err != nil {
				return nil, err
			}
			data[i] = out
		}
		stamped.Args.Data = data
		return next(ctx, &stamped)
	}

	return next(ctx, d)
}

// stamp fills the tenant column, or fails loudly when the caller supplied a
// different organization: that is a programming error upstream, never
// something to silently override.
func (p *TenantScope) stamp(rec Record, orgID uint, entity string) (Record, error) {
	if v, ok := rec[p.field]; ok && v != nil {
		if rec.Uint(p.field) != orgID {
			return nil, apperr.ScopeViolation(fmt.Sprintf(
				"create on %q declares %s %v but organization %d is active",
				entity, p.field, v, orgID))
		}
		return rec, nil
	}
	out := rec.Clone()
	out[p.field] = orgID
	return out, nil
}

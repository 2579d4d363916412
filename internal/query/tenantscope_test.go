package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/tenant"
)

func boundCtx(orgID uint) context.Context {
	return tenant.WithOrgID(context.Background(), orgID)
}

func TestTenantScopeUnboundBypasses(t *testing.T) {
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})
	next := &captureNext{}

	_, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "api_key",
		Operation: OpFindMany,
	}, next.handler())
	require.NoError(t, err)
	assert.Nil(t, next.seen[0].Args.Filter)
}

func TestTenantScopeReadsAreScoped(t *testing.T) {
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})

	for _, op := range []Operation{OpFindUnique, OpFindFirst, OpFindMany, OpCount, OpUpdateMany, OpDeleteMany} {
		next := &captureNext{}
		_, err := p.Handle(boundCtx(9), &Descriptor{
			Entity:    "api_key",
			Operation: op,
			Args:      Args{Filter: IsNull("deleted_at")},
		}, next.handler())
		require.NoError(t, err, string(op))
		assert.Equal(t,
			Filter(And{Eq("organization_id", uint(9)), IsNull("deleted_at")}),
			next.seen[0].Args.Filter, string(op))
	}
}

func TestTenantScopeReadWithoutFilter(t *testing.T) {
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})
	next := &captureNext{}

	_, err := p.Handle(boundCtx(9), &Descriptor{
		Entity:    "api_key",
		Operation: OpFindMany,
	}, next.handler())
	require.NoError(t, err)
	assert.Equal(t, Filter(Eq("organization_id", uint(9))), next.seen[0].Args.Filter)
}

func TestTenantScopeEntityAllowList(t *testing.T) {
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})
	next := &captureNext{}

	_, err := p.Handle(boundCtx(9), &Descriptor{
		Entity:    "organization",
		Operation: OpFindMany,
	}, next.handler())
	require.NoError(t, err)
	assert.Nil(t, next.seen[0].Args.Filter)
}

func TestTenantScopeCreateStampsMissingField(t *testing.T) {
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})
	next := &captureNext{}

	orig := Record{"name": "ci"}
	_, err := p.Handle(boundCtx(9), &Descriptor{
		Entity:    "api_key",
		Operation: OpCreate,
		Args:      Args{Data: []Record{orig}},
	}, next.handler())
	require.NoError(t, err)

	stamped := next.seen[0].Args.Data[0]
	assert.Equal(t, uint(9), stamped.Uint("organization_id"))
	// Caller-owned map stays unmodified.
	_, ok := orig["organization_id"]
	assert.False(t, ok)
}

func TestTenantScopeCreateAcceptsMatchingField(t *testing.T) {
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})
	next := &captureNext{}

	_, err := p.Handle(boundCtx(9), &Descriptor{
		Entity:    "api_key",
		Operation: OpCreate,
		Args:      Args{Data: []Record{{"name": "ci", "organization_id": uint(9)}}},
	}, next.handler())
	require.NoError(t, err)
	assert.Equal(t, uint(9), next.seen[0].Args.Data[0].Uint("organization_id"))
}

func TestTenantScopeCreateMismatchFails(t *testing.T) {
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})
	next := &captureNext{}

	_, err := p.Handle(boundCtx(9), &Descriptor{
		Entity:    "api_key",
		Operation: OpCreate,
		Args:      Args{Data: []Record{{"name": "ci", "organization_id": uint(4)}}},
	}, next.handler())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeScopeViolation))
	// The real call never happens.
	assert.Empty(t, next.seen)
}

func TestTenantScopeCreateManyElementWise(t *testing.T) {
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})
	next := &captureNext{}

	_, err := p.Handle(boundCtx(9), &Descriptor{
		Entity:    "api_key",
		Operation: OpCreateMany,
		Args: Args{Data: []Record{
			{"name": "a"},
			{"name": "b", "organization_id": uint(9)},
			{"name": "c", "organization_id": uint(5)},
		}},
	}, next.handler())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeScopeViolation))
}

func TestTenantScopeSingleUpdatePassesThrough(t *testing.T) {
	// Single-row update/delete target a unique key the service already
	// resolved; only bulk variants get the implicit scope.
	p := NewTenantScope(TenantScopeConfig{Entities: []string{"api_key"}})
	next := &captureNext{}

	_, err := p.Handle(boundCtx(9), &Descriptor{
		Entity:    "api_key",
		Operation: OpUpdate,
		Args:      Args{Filter: Eq("id", uint(3))},
	}, next.handler())
	require.NoError(t, err)
	assert.Equal(t, Filter(Eq("id", uint(3))), next.seen[0].Args.Filter)
}

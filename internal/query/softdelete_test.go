package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureNext records every descriptor it receives and replays canned
// responses in order.
type captureNext struct {
	seen    []*Descriptor
	results []*Result
	errs    []error
}

func (c *captureNext) handler() Handler {
	return func(ctx context.Context, d *Descriptor) (*Result, error) {
		i := len(c.seen)
		c.seen = append(c.seen, d)
		var res *Result
		var err error
		if i < len(c.results) {
			res = c.results[i]
		}
		if i < len(c.errs) {
			err = c.errs[i]
		}
		if res == nil && err == nil {
			res = &Result{}
		}
		return res, err
	}
}

func TestSoftDeleteFindManyInjectsFilter(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{Entities: []string{"user"}})
	next := &captureNext{}

	d := &Descriptor{
		Entity:    "user",
		Operation: OpFindMany,
		Args:      Args{Filter: Eq("email", "a@b.c")},
	}
	_, err := p.Handle(context.Background(), d, next.handler())
	require.NoError(t, err)

	require.Len(t, next.seen, 1)
	got := next.seen[0].Args.Filter
	assert.Equal(t, Filter(And{IsNull("deleted_at"), Eq("email", "a@b.c")}), got)
	// The original descriptor stays untouched.
	assert.Equal(t, Filter(Eq("email", "a@b.c")), d.Args.Filter)
}

func TestSoftDeleteFindManyWithoutFilter(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{})
	next := &captureNext{}

	_, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "api_key",
		Operation: OpFindMany,
	}, next.handler())
	require.NoError(t, err)
	assert.Equal(t, Filter(IsNull("deleted_at")), next.seen[0].Args.Filter)
}

func TestSoftDeleteExplicitReferenceBypasses(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{})
	next := &captureNext{}

	f := And{Eq("user_id", uint(1)), Or{IsNull("deleted_at"), NotNull("deleted_at")}}
	_, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "membership",
		Operation: OpFindMany,
		Args:      Args{Filter: f},
	}, next.handler())
	require.NoError(t, err)
	assert.Equal(t, Filter(f), next.seen[0].Args.Filter)
}

func TestSoftDeleteEntityAllowList(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{Entities: []string{"user"}})
	next := &captureNext{}

	_, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "audit_event",
		Operation: OpFindMany,
	}, next.handler())
	require.NoError(t, err)
	assert.Nil(t, next.seen[0].Args.Filter)
}

func TestSoftDeleteWritesPassThrough(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{})
	next := &captureNext{}

	_, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpUpdateMany,
		Args:      Args{Filter: Eq("id", uint(1))},
	}, next.handler())
	require.NoError(t, err)
	assert.Equal(t, Filter(Eq("id", uint(1))), next.seen[0].Args.Filter)
}

func TestSoftDeleteFindUniqueOptimistic(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{})
	next := &captureNext{results: []*Result{{Records: []Record{{"id": uint(1)}}}}}

	res, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpFindUnique,
		Args:      Args{Filter: Eq("id", uint(1))},
	}, next.handler())
	require.NoError(t, err)

	require.Len(t, next.seen, 1)
	assert.Equal(t, OpFindUnique, next.seen[0].Operation)
	assert.Equal(t, Filter(And{IsNull("deleted_at"), Eq("id", uint(1))}), next.seen[0].Args.Filter)
	assert.Equal(t, uint(1), res.One().Uint("id"))
}

func TestSoftDeleteFindUniqueFallsBackOnShapeError(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{})
	next := &captureNext{
		errs:    []error{ErrInvalidUniqueShape, nil},
		results: []*Result{nil, {Records: []Record{{"id": uint(1)}}}},
	}

	orig := Or{Eq("id", uint(1)), Eq("email", "a@b.c")}
	res, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpFindUnique,
		Args:      Args{Filter: orig},
	}, next.handler())
	require.NoError(t, err)

	require.Len(t, next.seen, 2)
	fallback := next.seen[1]
	assert.Equal(t, OpFindFirst, fallback.Operation)
	assert.Equal(t, Filter(And{IsNull("deleted_at"), orig}), fallback.Args.Filter)
	assert.Equal(t, 1, fallback.Args.Limit)
	assert.Equal(t, uint(1), res.One().Uint("id"))
}

func TestSoftDeleteFindUniqueUnknownErrorIsFatal(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{})
	boom := errors.New("connection reset")
	next := &captureNext{errs: []error{boom}}

	_, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpFindUnique,
		Args:      Args{Filter: Eq("id", uint(1))},
	}, next.handler())
	require.ErrorIs(t, err, boom)
	// No silent retry on broad errors.
	assert.Len(t, next.seen, 1)
}

func TestSoftDeleteCustomField(t *testing.T) {
	p := NewSoftDelete(SoftDeleteConfig{Field: "archived_at"})
	next := &captureNext{}

	_, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpCount,
	}, next.handler())
	require.NoError(t, err)
	assert.Equal(t, Filter(IsNull("archived_at")), next.seen[0].Args.Filter)
}

package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tracePolicy struct {
	name  string
	trace *[]string
}

func (p tracePolicy) Name() string { return p.name }

func (p tracePolicy) Handle(ctx context.Context, d *Descriptor, next Handler) (*Result, error) {
	*p.trace = append(*p.trace, p.name+":before")
	res, err := next(ctx, d)
	*p.trace = append(*p.trace, p.name+":after")
	return res, err
}

func TestChainOrder(t *testing.T) {
	var trace []string
	exec := func(ctx context.Context, d *Descriptor) (*Result, error) {
		trace = append(trace, "exec")
		return &Result{}, nil
	}

	h := Chain(exec,
		tracePolicy{name: "soft_delete", trace: &trace},
		tracePolicy{name: "tenant_scope", trace: &trace},
		tracePolicy{name: "redaction", trace: &trace},
	)

	_, err := h(context.Background(), &Descriptor{Entity: "user", Operation: OpFindMany})
	require.NoError(t, err)

	// Argument rewrites run outside-in, result transforms inside-out.
	assert.Equal(t, []string{
		"soft_delete:before",
		"tenant_scope:before",
		"redaction:before",
		"exec",
		"redaction:after",
		"tenant_scope:after",
		"soft_delete:after",
	}, trace)
}

func TestChainWithoutPolicies(t *testing.T) {
	exec := func(ctx context.Context, d *Descriptor) (*Result, error) {
		return &Result{Count: 42}, nil
	}
	res, err := Chain(exec)(context.Background(), &Descriptor{Operation: OpCount})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.Count)
}

package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redactedUser() Record {
	return Record{
		"id":            uint(1),
		"email":         "a@b.c",
		"password":      "$2a$10$hash",
		"refresh_token": "bcrypt-of-refresh",
		"memberships": []any{
			map[string]any{
				"organization_id": uint(9),
				"user": map[string]any{
					"id":       uint(1),
					"password": "$2a$10$hash",
				},
			},
		},
	}
}

func TestRedactionStripsAtRoot(t *testing.T) {
	p := NewRedaction(RedactionConfig{})
	next := &captureNext{results: []*Result{{Records: []Record{redactedUser()}}}}

	res, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpFindUnique,
		Args:      Args{Filter: Eq("id", uint(1))},
	}, next.handler())
	require.NoError(t, err)

	rec := res.One()
	assert.NotContains(t, rec, "password")
	assert.NotContains(t, rec, "refresh_token")
	assert.Equal(t, "a@b.c", rec.String("email"))
}

func TestRedactionStripsNestedUnconditionally(t *testing.T) {
	p := NewRedaction(RedactionConfig{})
	next := &captureNext{results: []*Result{{Records: []Record{redactedUser()}}}}

	res, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpFindUnique,
		Args:      Args{Filter: Eq("id", uint(1)), Select: []string{"password"}},
	}, next.handler())
	require.NoError(t, err)

	rec := res.One()
	// Explicit single-field opt-in survives at the root only.
	assert.Contains(t, rec, "password")
	assert.NotContains(t, rec, "refresh_token")

	memberships := rec["memberships"].([]any)
	nested := memberships[0].(map[string]any)["user"].(map[string]any)
	assert.NotContains(t, nested, "password")
}

func TestRedactionArrayElementsAreRoots(t *testing.T) {
	p := NewRedaction(RedactionConfig{})
	next := &captureNext{results: []*Result{{Records: []Record{
		{"id": uint(1), "password": "h1"},
		{"id": uint(2), "password": "h2"},
	}}}}

	res, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpFindMany,
		Args:      Args{Select: []string{"password"}},
	}, next.handler())
	require.NoError(t, err)

	// Depth resets per element, so the opt-in applies to each record.
	for _, rec := range res.Records {
		assert.Contains(t, rec, "password")
	}
}

func TestRedactionOtherEntitiesUntouched(t *testing.T) {
	p := NewRedaction(RedactionConfig{})
	next := &captureNext{results: []*Result{{Records: []Record{
		{"id": uint(1), "password": "not-a-user-column"},
	}}}}

	res, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "organization",
		Operation: OpFindMany,
	}, next.handler())
	require.NoError(t, err)
	assert.Contains(t, res.One(), "password")
}

func TestRedactionWriteEchoIsStripped(t *testing.T) {
	p := NewRedaction(RedactionConfig{})
	next := &captureNext{results: []*Result{{Records: []Record{
		{"id": uint(1), "email": "a@b.c", "password": "$2a$10$hash"},
	}}}}

	res, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpCreate,
		Args:      Args{Data: []Record{{"email": "a@b.c", "password": "$2a$10$hash"}}},
	}, next.handler())
	require.NoError(t, err)
	assert.NotContains(t, res.One(), "password")
}

func TestRedactionEmptySelectAllowsNothing(t *testing.T) {
	p := NewRedaction(RedactionConfig{})
	next := &captureNext{results: []*Result{{Records: []Record{redactedUser()}}}}

	res, err := p.Handle(context.Background(), &Descriptor{
		Entity:    "user",
		Operation: OpFindFirst,
	}, next.handler())
	require.NoError(t, err)
	assert.NotContains(t, res.One(), "password")
}

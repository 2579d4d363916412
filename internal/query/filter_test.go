package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferences(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		field  string
		want   bool
	}{
		{"nil filter", nil, "deleted_at", false},
		{"leaf match", IsNull("deleted_at"), "deleted_at", true},
		{"leaf miss", Eq("email", "a@b.c"), "deleted_at", false},
		{
			"nested in and",
			And{Eq("email", "a@b.c"), Or{IsNull("deleted_at"), NotNull("deleted_at")}},
			"deleted_at",
			true,
		},
		{
			"deeply nested miss",
			And{Or{Eq("name", "x"), And{Eq("slug", "y")}}},
			"deleted_at",
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, References(tt.filter, tt.field))
		})
	}
}

func TestMergeAnd(t *testing.T) {
	injected := IsNull("deleted_at")

	assert.Equal(t, Filter(injected), MergeAnd(nil, injected))

	existing := Eq("email", "a@b.c")
	merged := MergeAnd(existing, injected)
	assert.Equal(t, Filter(And{injected, existing}), merged)
}

func TestMatches(t *testing.T) {
	rec := Record{
		"id":              uint(3),
		"organization_id": int64(7),
		"deleted_at":      nil,
		"email":           "a@b.c",
	}

	assert.True(t, Matches(nil, rec))
	assert.True(t, Matches(Eq("email", "a@b.c"), rec))
	assert.False(t, Matches(Eq("email", "x@y.z"), rec))
	assert.True(t, Matches(IsNull("deleted_at"), rec))
	assert.False(t, Matches(NotNull("deleted_at"), rec))
	assert.True(t, Matches(IsNull("missing_column"), rec))

	// Integer widths from different drivers compare as values.
	assert.True(t, Matches(Eq("organization_id", uint(7)), rec))
	assert.True(t, Matches(Eq("id", int64(3)), rec))

	assert.True(t, Matches(And{Eq("email", "a@b.c"), IsNull("deleted_at")}, rec))
	assert.False(t, Matches(And{Eq("email", "a@b.c"), NotNull("deleted_at")}, rec))
	assert.True(t, Matches(Or{Eq("email", "x@y.z"), Eq("id", uint(3))}, rec))

	assert.True(t, Matches(In("id", []uint{1, 2, 3}), rec))
	assert.False(t, Matches(In("id", []uint{4, 5}), rec))
}

func TestIncludeDeleted(t *testing.T) {
	f := IncludeDeleted(Eq("user_id", uint(1)), "deleted_at")
	assert.True(t, References(f, "deleted_at"))

	live := Record{"user_id": uint(1), "deleted_at": nil}
	dead := Record{"user_id": uint(1), "deleted_at": "2026-01-01"}
	assert.True(t, Matches(f, live))
	assert.True(t, Matches(f, dead))
}

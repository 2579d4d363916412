package store

// Entity describes a table reachable through the query pipeline. UniqueKeys
// lists the column sets a find_unique filter may target; the executor
// rejects any other shape with query.ErrInvalidUniqueShape.
type Entity struct {
	Name       string
	Table      string
	UniqueKeys [][]string
}

var registry = map[string]Entity{
	"user": {
		Name:       "user",
		Table:      "users",
		UniqueKeys: [][]string{{"id"}, {"email"}},
	},
	"organization": {
		Name:       "organization",
		Table:      "organizations",
		UniqueKeys: [][]string{{"id"}, {"slug"}},
	},
	"membership": {
		Name:       "membership",
		Table:      "memberships",
		UniqueKeys: [][]string{{"id"}, {"user_id", "organization_id"}},
	},
	"api_key": {
		Name:       "api_key",
		Table:      "api_keys",
		UniqueKeys: [][]string{{"id"}, {"key_hash"}},
	},
	"subscription": {
		Name:       "subscription",
		Table:      "subscriptions",
		UniqueKeys: [][]string{{"id"}},
	},
}

// Lookup resolves an entity by its pipeline name.
func Lookup(name string) (Entity, bool) {
	e, ok := registry[name]
	return e, ok
}

// Entities returns the names of all registered entities.
func Entities() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

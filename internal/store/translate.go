package store

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/habberrih/manara/internal/query"
)

var (
	columnPattern  = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	orderByPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*( (asc|desc))?(, [a-z_][a-z0-9_]*( (asc|desc))?)*$`)
)

// translateFilter renders a filter tree as a parameterized SQL condition.
func translateFilter(f query.Filter) (string, []any, error) {
	switch v := f.(type) {
	case nil:
		return "", nil, nil
	case query.Cond:
		return translateCond(v)
	case query.And:
		return translateGroup([]query.Filter(v), " AND ")
	case query.Or:
		return translateGroup([]query.Filter(v), " OR ")
	}
	return "", nil, fmt.Errorf("store: unknown filter node %T", f)
}

func translateGroup(subs []query.Filter, sep string) (string, []any, error) {
	if len(subs) == 0 {
		return "", nil, nil
	}
	parts := make([]string, 0, len(subs))
	var args []any
	for _, sub := range subs {
		sql, subArgs, err := translateFilter(sub)
		if err != nil {
			return "", nil, err
		}
		if sql == "" {
			continue
		}
		parts = append(parts, "("+sql+")")
		args = append(args, subArgs...)
	}
	return strings.Join(parts, sep), args, nil
}

func translateCond(c query.Cond) (string, []any, error) {
	if !columnPattern.MatchString(c.Field) {
		return "", nil, fmt.Errorf("store: invalid column name %q", c.Field)
	}
	switch c.Op {
	case query.OpEq:
		return c.Field + " = ?", []any{c.Value}, nil
	case query.OpNe:
		return c.Field + " <> ?", []any{c.Value}, nil
	case query.OpIn:
		return c.Field + " IN ?", []any{c.Value}, nil
	case query.OpIsNull:
		return c.Field + " IS NULL", nil, nil
	case query.OpNotNull:
		return c.Field + " IS NOT NULL", nil, nil
	case query.OpLt:
		return c.Field + " < ?", []any{c.Value}, nil
	case query.OpLte:
		return c.Field + " <= ?", []any{c.Value}, nil
	case query.OpGt:
		return c.Field + " > ?", []any{c.Value}, nil
	case query.OpGte:
		return c.Field + " >= ?", []any{c.Value}, nil
	}
	return "", nil, fmt.Errorf("store: unknown condition operator %q", c.Op)
}

// flattenConds unrolls a filter into its leaf conditions if it is a flat
// conjunction (a single condition, or nested ANDs of conditions). Any OR
// group makes the filter non-flat.
func flattenConds(f query.Filter) ([]query.Cond, bool) {
	switch v := f.(type) {
	case nil:
		return nil, true
	case query.Cond:
		return []query.Cond{v}, true
	case query.And:
		var conds []query.Cond
		for _, sub := range v {
			subConds, ok := flattenConds(sub)
			if !ok {
				return nil, false
			}
			conds = append(conds, subConds...)
		}
		return conds, true
	}
	return nil, false
}

// ValidateUniqueShape checks that a find_unique filter is a flat conjunction
// whose equality conditions cover one of the entity's unique keys. Extra
// flat conditions (such as an injected IS NULL) are permitted.
func ValidateUniqueShape(e Entity, f query.Filter) error {
	conds, flat := flattenConds(f)
	if !flat {
		return query.ErrInvalidUniqueShape
	}
	eqFields := make(map[string]struct{})
	for _, c := range conds {
		if c.Op == query.OpEq {
			eqFields[c.Field] = struct{}{}
		}
	}
	for _, key := range e.UniqueKeys {
		covered := true
		for _, col := range key {
			if _, ok := eqFields[col]; !ok {
				covered = false
				break
			}
		}
		if covered {
			return nil
		}
	}
	return query.ErrInvalidUniqueShape
}

func validateColumns(cols []string) error {
	for _, col := range cols {
		if !columnPattern.MatchString(col) {
			return fmt.Errorf("store: invalid column name %q", col)
		}
	}
	return nil
}

func validateOrderBy(expr string) error {
	if expr == "" {
		return nil
	}
	if !orderByPattern.MatchString(expr) {
		return fmt.Errorf("store: invalid order expression %q", expr)
	}
	return nil
}

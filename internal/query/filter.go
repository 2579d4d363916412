package query

// Filter is a small tagged filter tree: a leaf condition or a boolean
// combination of sub-filters. Keeping it structural (instead of raw maps)
// makes merging and field-presence checks a plain recursion.
type Filter interface {
	filter()
}

// CondOp enumerates the comparison operators a leaf condition supports.
type CondOp string

const (
	OpEq      CondOp = "eq"
	OpNe      CondOp = "ne"
	OpIn      CondOp = "in"
	OpIsNull  CondOp = "is_null"
	OpNotNull CondOp = "not_null"
	OpLt      CondOp = "lt"
	OpLte     CondOp = "lte"
	OpGt      CondOp = "gt"
	OpGte     CondOp = "gte"
)

// Cond is a leaf condition on a single column.
type Cond struct {
	Field string
	Op    CondOp
	Value any
}

// And matches rows satisfying every sub-filter.
type And []Filter

// Or matches rows satisfying at least one sub-filter.
type Or []Filter

func (Cond) filter() {}
func (And) filter()  {}
func (Or) filter()   {}

func Eq(field string, value any) Cond  { return Cond{Field: field, Op: OpEq, Value: value} }
func Ne(field string, value any) Cond  { return Cond{Field: field, Op: OpNe, Value: value} }
func In(field string, values any) Cond { return Cond{Field: field, Op: OpIn, Value: values} }
func IsNull(field string) Cond         { return Cond{Field: field, Op: OpIsNull} }
func NotNull(field string) Cond        { return Cond{Field: field, Op: OpNotNull} }

// MergeAnd combines an existing filter with an injected one. A nil existing
// filter yields the injected filter alone, mirroring "set it as the sole
// filter if none existed".
func MergeAnd(existing, injected Filter) Filter {
	if existing == nil {
		return injected
	}
	return And{injected, existing}
}

// References reports whether the filter mentions the given field anywhere,
// including inside nested boolean combinators. Policies use it to detect
// explicit caller intent.
func References(f Filter, field string) bool {
	switch v := f.(type) {
	case nil:
		return false
	case Cond:
		return v.Field == field
	case And:
		for _, sub := range v {
			if References(sub, field) {
				return true
			}
		}
	case Or:
		for _, sub := range v {
			if References(sub, field) {
				return true
			}
		}
	}
	return false
}

// IncludeDeleted widens a filter to match rows regardless of their
// soft-delete marker. Referencing the column is the documented opt-out from
// the implicit soft-delete filter; membership revival relies on it.
func IncludeDeleted(f Filter, field string) Filter {
	marker := Or{IsNull(field), NotNull(field)}
	if f == nil {
		return marker
	}
	return And{f, marker}
}

// Matches evaluates the filter against a record in memory. The GORM executor
// translates filters to SQL instead; this path serves the in-memory test
// executor and keeps both on the same semantics.
func Matches(f Filter, rec Record) bool {
	switch v := f.(type) {
	case nil:
		return true
	case Cond:
		return condMatches(v, rec)
	case And:
		for _, sub := range v {
			if !Matches(sub, rec) {
				return false
			}
		}
		return true
	case Or:
		if len(v) == 0 {
			return true
		}
		for _, sub := range v {
			if Matches(sub, rec) {
				return true
			}
		}
		return false
	}
	return false
}

func condMatches(c Cond, rec Record) bool {
	val, present := rec[c.Field]
	switch c.Op {
	case OpIsNull:
		return !present || val == nil
	case OpNotNull:
		return present && val != nil
	case OpEq:
		return present && equalValues(val, c.Value)
	case OpNe:
		return !present || !equalValues(val, c.Value)
	case OpIn:
		for _, want := range anySlice(c.Value) {
			if present && equalValues(val, want) {
				return true
			}
		}
		return false
	case OpLt, OpLte, OpGt, OpGte:
		a, aok := toFloat(val)
		b, bok := toFloat(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Op {
		case OpLt:
			return a < b
		case OpLte:
			return a <= b
		case OpGt:
			return a > b
		default:
			return a >= b
		}
	}
	return false
}

func anySlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []uint:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	case []string:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	case []int:
		out := make([]any, len(s))
		for i, e := range s {
			out[i] = e
		}
		return out
	}
	return nil
}

// equalValues compares loosely across the integer widths drivers hand back.
func equalValues(a, b any) bool {
	if a == b {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

package query

import "context"

// RedactionConfig configures sensitive-field stripping.
type RedactionConfig struct {
	// Entity is the single entity whose results get redacted. Defaults to "user".
	Entity string
	// Fields are the sensitive column names. Defaults to password and
	// refresh_token, the two credential hashes persisted on users.
	Fields []string
}

// Redaction strips sensitive fields from returned records after the real
// call. A top-level field survives only when the caller selected exactly
// that column by name; nested occurrences are stripped unconditionally.
type Redaction struct {
	entity    string
	sensitive map[string]struct{}
}

var redactedOps = map[Operation]struct{}{
	OpFindUnique: {},
	OpFindFirst:  {},
	OpFindMany:   {},
	OpCount:      {},
	OpCreate:     {},
	OpCreateMany: {},
	OpUpdate:     {},
	OpDelete:     {},
}

// NewRedaction builds the policy from its configuration.
func NewRedaction(cfg RedactionConfig) *Redaction {
	entity := cfg.Entity
	if entity == "" {
		entity = "user"
	}
	fields := cfg.Fields
	if len(fields) == 0 {
		fields = []string{"password", "refresh_token"}
	}
	p := &Redaction{
		entity:    entity,
		sensitive: make(map[string]struct{}, len(fields)),
	}
	for _, f := range fields {
		p.sensitive[f] = struct{}{}
	}
	return p
}

func (p *Redaction) Name() string { return "redaction" }

func (p *Redaction) Handle(ctx context.Context, d *Descriptor, next Handler) (*Result, error) {
	res, err := next(ctx, d)
	if err != nil {
		return nil, err
	}
	if d.Entity != p.entity {
		return res, nil
	}
	if _, ok := redactedOps[d.Operation]; !ok {
		return res, nil
	}

	allowed := p.allowedAtRoot(d.Args.Select)
	out := *res
	out.Records = make([]Record, len(res.Records))
	for i, rec := range res.Records {
		// Each returned record is its own root: depth resets per element.
		out.Records[i] = p.stripRecord(rec, allowed)
	}
	return &out, nil
}

// allowedAtRoot collects sensitive fields the caller opted into by selecting
// exactly that column. An empty select means "all columns", which is not an
// explicit request and allows nothing.
func (p *Redaction) allowedAtRoot(selected []string) map[string]struct{} {
	if len(selected) == 0 {
		return nil
	}
	allowed := make(map[string]struct{})
	for _, col := range selected {
		if _, ok := p.sensitive[col]; ok {
			allowed[col] = struct{}{}
		}
	}
	return allowed
}

func (p *Redaction) stripRecord(rec Record, allowed map[string]struct{}) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		if _, sensitive := p.sensitive[k]; sensitive {
			if _, ok := allowed[k]; !ok {
				continue
			}
		}
		out[k] = p.stripNested(v)
	}
	return out
}

// stripNested removes sensitive keys from every object or array below the
// root, with no opt-in: a relation echoing a credential hash is never what
// the caller asked for.
func (p *Redaction) stripNested(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			if _, sensitive := p.sensitive[k]; sensitive {
				continue
			}
			out[k] = p.stripNested(sub)
		}
		return out
	case Record:
		return p.stripNested(map[string]any(val))
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = p.stripNested(sub)
		}
		return out
	}
	return v
}

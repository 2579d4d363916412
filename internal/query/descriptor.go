// Package query is the data-access interception layer. Every call against a
// shared table is described by a Descriptor and flows through a fixed chain
// of policies before the executor performs the real query: soft-delete
// filtering, tenant scoping, then sensitive-field redaction. The chain is
// composed once at startup; policies are pure argument/result transforms
// around the single suspension point inside the executor.
package query

import (
	"context"
	"errors"
)

// Operation identifies the kind of data-access call being made.
type Operation string

const (
	OpFindUnique Operation = "find_unique"
	OpFindFirst  Operation = "find_first"
	OpFindMany   Operation = "find_many"
	OpCount      Operation = "count"
	OpCreate     Operation = "create"
	OpCreateMany Operation = "create_many"
	OpUpdate     Operation = "update"
	OpUpdateMany Operation = "update_many"
	OpDelete     Operation = "delete"
	OpDeleteMany Operation = "delete_many"
)

// ErrInvalidUniqueShape is returned by an executor when a find_unique filter
// does not have the shape its unique-lookup contract requires. The
// soft-delete policy recognizes this exact error to retry through the
// find_first path; any other executor error is fatal and propagates.
var ErrInvalidUniqueShape = errors.New("query: filter shape not valid for unique lookup")

// Record is one row as it crosses the interception boundary.
type Record map[string]any

// Clone returns a shallow copy so policies can rewrite data without
// mutating caller-owned maps.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Uint reads an integer column across the widths drivers hand back.
func (r Record) Uint(key string) uint {
	switch v := r[key].(type) {
	case uint:
		return v
	case uint32:
		return uint(v)
	case uint64:
		return uint(v)
	case int:
		return uint(v)
	case int32:
		return uint(v)
	case int64:
		return uint(v)
	case float64:
		return uint(v)
	}
	return 0
}

// String reads a text column, returning "" for absent or null values.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// IsNull reports whether the column is absent or holds SQL NULL.
func (r Record) IsNull(key string) bool {
	v, ok := r[key]
	return !ok || v == nil
}

// Args carries the caller-supplied arguments of a data-access call.
type Args struct {
	// Filter constrains reads, scoped bulk writes and single-row updates.
	Filter Filter
	// Data holds the record(s) being written for create/update operations.
	Data []Record
	// Select names the columns to return; empty means all. Redaction treats
	// an exact sensitive column name here as an explicit opt-in.
	Select []string
	// OrderBy is a raw ordering expression such as "created_at desc".
	OrderBy string
	Limit   int
	Offset  int
}

// Descriptor describes one data-access call flowing through the pipeline.
type Descriptor struct {
	Entity    string
	Operation Operation
	Args      Args
}

// Result is what comes back from the executor, post-processed by policies on
// the way out.
type Result struct {
	Records      []Record
	Count        int64
	RowsAffected int64
}

// One returns the single record of the result, or nil when empty.
func (r *Result) One() Record {
	if r == nil || len(r.Records) == 0 {
		return nil
	}
	return r.Records[0]
}

// Handler performs a described call and returns its result.
type Handler func(ctx context.Context, d *Descriptor) (*Result, error)

// Policy wraps a Handler. It may rewrite the descriptor before calling next,
// post-process the result, or bypass entirely.
type Policy interface {
	Name() string
	Handle(ctx context.Context, d *Descriptor, next Handler) (*Result, error)
}

// Chain composes policies around an executor in declaration order: the first
// policy is outermost, so its argument rewrites run first and its result
// transforms run last.
func Chain(exec Handler, policies ...Policy) Handler {
	h := exec
	for i := len(policies) - 1; i >= 0; i-- {
		p := policies[i]
		inner := h
		h = func(ctx context.Context, d *Descriptor) (*Result, error) {
			return p.Handle(ctx, d, inner)
		}
	}
	return h
}

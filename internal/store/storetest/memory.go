// Package storetest provides an in-memory executor with the same descriptor
// contract as the GORM executor: unique-shape validation, uniqueness
// constraint enforcement and timestamp columns. Service and policy tests run
// the full pipeline against it without a database.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/habberrih/manara/internal/apperr"
	"github.com/habberrih/manara/internal/query"
	"github.com/habberrih/manara/internal/store"
)

// Executor keeps every entity's rows in memory.
type Executor struct {
	mu     sync.Mutex
	tables map[string][]query.Record
	nextID map[string]uint
	clock  func() time.Time
}

// NewExecutor returns an empty in-memory executor.
func NewExecutor() *Executor {
	return &Executor{
		tables: make(map[string][]query.Record),
		nextID: make(map[string]uint),
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// Seed inserts a row directly, bypassing the pipeline. Missing ids are
// assigned; timestamps are filled when absent.
func (e *Executor) Seed(entity string, rec query.Record) query.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	row := rec.Clone()
	if row.IsNull("id") {
		row["id"] = e.allocateID(entity)
	} else if id := row.Uint("id"); id >= e.nextID[entity] {
		e.nextID[entity] = id + 1
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = e.clock()
	}
	if _, ok := row["updated_at"]; !ok {
		row["updated_at"] = e.clock()
	}
	if _, ok := row["deleted_at"]; !ok {
		row["deleted_at"] = nil
	}
	e.tables[entity] = append(e.tables[entity], row)
	return row
}

// All returns a copy of every stored row for the entity, raw and unfiltered.
func (e *Executor) All(entity string) []query.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	rows := e.tables[entity]
	out := make([]query.Record, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out
}

// Exec implements query.Handler.
func (e *Executor) Exec(ctx context.Context, d *query.Descriptor) (*query.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ent, ok := store.Lookup(d.Entity)
	if !ok {
		return nil, fmt.Errorf("storetest: unknown entity %q", d.Entity)
	}

	switch d.Operation {
	case query.OpFindUnique:
		if err := store.ValidateUniqueShape(ent, d.Args.Filter); err != nil {
			return nil, err
		}
		args := d.Args
		args.Limit = 1
		return e.find(d.Entity, args), nil
	case query.OpFindFirst:
		args := d.Args
		args.Limit = 1
		return e.find(d.Entity, args), nil
	case query.OpFindMany:
		return e.find(d.Entity, d.Args), nil
	case query.OpCount:
		matched := e.match(d.Entity, d.Args.Filter)
		return &query.Result{Count: int64(len(matched))}, nil
	case query.OpCreate, query.OpCreateMany:
		return e.create(ent, d.Args.Data)
	case query.OpUpdate, query.OpUpdateMany:
		return e.update(ent, d)
	case query.OpDelete, query.OpDeleteMany:
		return nil, fmt.Errorf("storetest: hard delete on %q is not supported, update the delete marker instead", ent.Name)
	}
	return nil, fmt.Errorf("storetest: unknown operation %q", d.Operation)
}

func (e *Executor) allocateID(entity string) uint {
	if e.nextID[entity] == 0 {
		e.nextID[entity] = 1
	}
	id := e.nextID[entity]
	e.nextID[entity]++
	return id
}

func (e *Executor) match(entity string, f query.Filter) []int {
	var idx []int
	for i, row := range e.tables[entity] {
		if query.Matches(f, row) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (e *Executor) find(entity string, args query.Args) *query.Result {
	idx := e.match(entity, args.Filter)
	records := make([]query.Record, 0, len(idx))
	for _, i := range idx {
		records = append(records, e.tables[entity][i].Clone())
	}
	sortRecords(records, args.OrderBy)
	if args.Offset > 0 {
		if args.Offset >= len(records) {
			records = nil
		} else {
			records = records[args.Offset:]
		}
	}
	if args.Limit > 0 && len(records) > args.Limit {
		records = records[:args.Limit]
	}
	if len(args.Select) > 0 {
		for i, rec := range records {
			projected := make(query.Record, len(args.Select))
			for _, col := range args.Select {
				if v, ok := rec[col]; ok {
					projected[col] = v
				}
			}
			records[i] = projected
		}
	}
	return &query.Result{Records: records}
}

func (e *Executor) create(ent store.Entity, data []query.Record) (*query.Result, error) {
	created := make([]query.Record, 0, len(data))
	for _, rec := range data {
		row := rec.Clone()
		row["id"] = e.allocateID(ent.Name)
		row["created_at"] = e.clock()
		row["updated_at"] = e.clock()
		if _, ok := row["deleted_at"]; !ok {
			row["deleted_at"] = nil
		}
		if err := e.checkUnique(ent, row, -1); err != nil {
			return nil, err
		}
		e.tables[ent.Name] = append(e.tables[ent.Name], row)
		created = append(created, row.Clone())
	}
	return &query.Result{Records: created, RowsAffected: int64(len(created))}, nil
}

func (e *Executor) update(ent store.Entity, d *query.Descriptor) (*query.Result, error) {
	if len(d.Args.Data) != 1 {
		return nil, fmt.Errorf("storetest: update on %q requires exactly one data record", ent.Name)
	}
	values := d.Args.Data[0]
	idx := e.match(ent.Name, d.Args.Filter)

	for _, i := range idx {
		row := e.tables[ent.Name][i].Clone()
		for k, v := range values {
			row[k] = v
		}
		row["updated_at"] = e.clock()
		if err := e.checkUnique(ent, row, i); err != nil {
			return nil, err
		}
		e.tables[ent.Name][i] = row
	}

	res := &query.Result{RowsAffected: int64(len(idx))}
	if d.Operation == query.OpUpdate && len(idx) > 0 {
		res.Records = []query.Record{e.tables[ent.Name][idx[0]].Clone()}
	}
	return res, nil
}

// checkUnique enforces the entity's unique keys over all rows, soft-deleted
// ones included, exactly as the database constraint would.
func (e *Executor) checkUnique(ent store.Entity, row query.Record, selfIdx int) error {
	for _, key := range ent.UniqueKeys {
		complete := true
		for _, col := range key {
			if row.IsNull(col) {
				complete = false
				break
			}
		}
		if !complete {
			continue
		}
		for i, other := range e.tables[ent.Name] {
			if i == selfIdx {
				continue
			}
			same := true
			for _, col := range key {
				if !query.Matches(query.Eq(col, row[col]), other) {
					same = false
					break
				}
			}
			if same {
				return apperr.Conflict(fmt.Sprintf("unique constraint violation on %s(%v)", ent.Table, key))
			}
		}
	}
	return nil
}

func sortRecords(records []query.Record, orderBy string) {
	field, desc := parseOrder(orderBy)
	if field == "" {
		field = "id"
	}
	sort.SliceStable(records, func(i, j int) bool {
		less := recordLess(records[i], records[j], field)
		if desc {
			return !less && !recordEqual(records[i], records[j], field)
		}
		return less
	})
}

func parseOrder(orderBy string) (string, bool) {
	switch {
	case orderBy == "":
		return "", false
	}
	field := orderBy
	desc := false
	if n := len(orderBy); n > 5 && orderBy[n-5:] == " desc" {
		field, desc = orderBy[:n-5], true
	} else if n > 4 && orderBy[n-4:] == " asc" {
		field = orderBy[:n-4]
	}
	return field, desc
}

func recordLess(a, b query.Record, field string) bool {
	if at, ok := a[field].(time.Time); ok {
		if bt, ok := b[field].(time.Time); ok {
			return at.Before(bt)
		}
	}
	if as, ok := a[field].(string); ok {
		if bs, ok := b[field].(string); ok {
			return as < bs
		}
	}
	return a.Uint(field) < b.Uint(field)
}

func recordEqual(a, b query.Record, field string) bool {
	return !recordLess(a, b, field) && !recordLess(b, a, field)
}

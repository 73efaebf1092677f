// Package reports owns the client-side working set of vulnerability
// reports: the records fetched for one scope, the pure search/filter
// projection over them, and the per-record optimistic edit layer used by
// the analyst review flow.
package reports

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"huntlab.org/internal/audit"
	"huntlab.org/internal/ids"
)

// Backend is the subset of the API client the controller needs. Defined
// here so tests can substitute a double.
type Backend interface {
	ListReports(ctx context.Context, status Status) ([]Record, error)
	ListMyReports(ctx context.Context) ([]Record, error)
	GetReport(ctx context.Context, id int64) (Record, error)
	UpdateReport(ctx context.Context, id int64, patch Patch) (Record, error)
	CreateReport(ctx context.Context, draft Draft) (Record, error)
	DeleteReport(ctx context.Context, id int64) error
}

type loadScope struct {
	mine   bool
	filter Status
}

// Collection owns one authoritative copy per record id plus the transient
// edit overlays. All mutation goes through its methods; network calls run
// outside the lock so independent records never block each other.
type Collection struct {
	mu       sync.Mutex
	backend  Backend
	records  []*Record
	overlays map[int64]*overlay
	lastLoad string // generation token of the newest load issued
	scope    loadScope
}

func NewCollection(backend Backend) *Collection {
	return &Collection{
		backend:  backend,
		overlays: map[int64]*overlay{},
		scope:    loadScope{mine: true},
	}
}

// Load replaces the working set with a fresh analyst-scope fetch,
// optionally filtered by status (StatusAll fetches everything). Ratings are
// normalized on decode; all overlays reset. A response that was overtaken
// by a newer Load is discarded and reported as ErrSuperseded.
func (c *Collection) Load(ctx context.Context, filter Status) error {
	gen := c.beginLoad(loadScope{filter: filter})
	recs, err := c.backend.ListReports(ctx, filter)
	if err != nil {
		return fmt.Errorf("load reports: %w", err)
	}
	return c.applyLoad(gen, recs)
}

// LoadMine replaces the working set with the hunter-scope fetch.
func (c *Collection) LoadMine(ctx context.Context) error {
	gen := c.beginLoad(loadScope{mine: true})
	recs, err := c.backend.ListMyReports(ctx)
	if err != nil {
		return fmt.Errorf("load my reports: %w", err)
	}
	return c.applyLoad(gen, recs)
}

// Reload re-issues the most recent load with the same scope.
func (c *Collection) Reload(ctx context.Context) error {
	c.mu.Lock()
	scope := c.scope
	c.mu.Unlock()
	if scope.mine {
		return c.LoadMine(ctx)
	}
	return c.Load(ctx, scope.filter)
}

func (c *Collection) beginLoad(scope loadScope) string {
	gen := ids.New()
	c.mu.Lock()
	c.lastLoad = gen
	c.scope = scope
	c.mu.Unlock()
	return gen
}

func (c *Collection) applyLoad(gen string, recs []Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Last request started wins: never let a stale response overwrite a
	// working set belonging to a newer load.
	if ids.Before(gen, c.lastLoad) {
		return ErrSuperseded
	}
	c.records = make([]*Record, len(recs))
	for i := range recs {
		rec := recs[i]
		c.records[i] = &rec
	}
	c.overlays = map[int64]*overlay{}
	return nil
}

// Project is the pure derived view: exact status match (StatusAll passes
// everything), case-insensitive substring search over title, target and
// CWE, newest first. The underlying set is never mutated.
func (c *Collection) Project(search string, filter Status) []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(search))
	out := make([]Record, 0, len(c.records))
	for _, rec := range c.records {
		if filter != StatusAll && filter != "" && rec.Status != filter {
			continue
		}
		if q != "" && !matches(rec, q) {
			continue
		}
		out = append(out, *rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func matches(rec *Record, q string) bool {
	return strings.Contains(strings.ToLower(rec.Title), q) ||
		strings.Contains(strings.ToLower(rec.Target), q) ||
		strings.Contains(strings.ToLower(rec.CWE), q)
}

// Create submits a new report and re-syncs with a full reload: the
// server-assigned id, timestamps and delete-permission flag are unknown
// until the backend answers, so there is no optimistic insert.
func (c *Collection) Create(ctx context.Context, draft Draft) (Record, error) {
	created, err := c.backend.CreateReport(ctx, draft)
	if err != nil {
		return Record{}, fmt.Errorf("create report: %w", err)
	}
	_ = audit.LogEvent(ctx, "report.created", map[string]any{"id": created.ID, "title": created.Title})
	if err := c.Reload(ctx); err != nil && err != ErrSuperseded {
		// The report exists server-side; surface the sync failure.
		return created, fmt.Errorf("re-sync after create: %w", err)
	}
	return created, nil
}

// Remove deletes a record after out-of-band user confirmation. The local
// copy goes away only once the backend confirms; remaining records keep
// their order.
func (c *Collection) Remove(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}

	c.mu.Lock()
	rec, ok := c.find(id)
	if !ok {
		c.mu.Unlock()
		return ErrUnknownRecord
	}
	if !rec.CanDelete {
		c.mu.Unlock()
		return ErrDeleteForbidden
	}
	c.mu.Unlock()

	if err := c.backend.DeleteReport(ctx, id); err != nil {
		return fmt.Errorf("delete report %d: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, r := range c.records {
		if r.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			break
		}
	}
	delete(c.overlays, id)
	_ = audit.LogEvent(ctx, "report.deleted", map[string]any{"id": id})
	return nil
}

// Records returns a copy of the working set in canonical (server) order.
func (c *Collection) Records() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.records))
	for i, rec := range c.records {
		out[i] = *rec
	}
	return out
}

// Record returns a copy of one record by id.
func (c *Collection) Record(id int64) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.find(id)
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (c *Collection) find(id int64) (*Record, bool) {
	for _, rec := range c.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return nil, false
}

package reports

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func ts(offsetMinutes int) time.Time {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(offsetMinutes) * time.Minute)
}

func TestProjectFiltersSearchesAndSorts(t *testing.T) {
	fb := &fakeBackend{}
	c := loaded(t, fb,
		Record{ID: 1, Title: "Stored XSS in comments", Target: "app.example.test", CWE: "CWE-79", Status: StatusNew, CreatedAt: ts(0)},
		Record{ID: 2, Title: "IDOR on invoices", Target: "billing.example.test", CWE: "CWE-639", Status: StatusInReview, CreatedAt: ts(30)},
		Record{ID: 3, Title: "Open redirect", Target: "auth.example.test", CWE: "CWE-601", Status: StatusNew, CreatedAt: ts(15)},
	)

	// Status filter, exact match.
	got := c.Project("", StatusNew)
	if len(got) != 2 || got[0].ID != 3 || got[1].ID != 1 {
		t.Fatalf("status projection wrong: %+v", got)
	}

	// StatusAll passes everything, newest first.
	got = c.Project("", StatusAll)
	if len(got) != 3 || got[0].ID != 2 || got[1].ID != 3 || got[2].ID != 1 {
		t.Fatalf("sort order wrong: %+v", got)
	}

	// Case-insensitive substring over title, target, CWE.
	if got = c.Project("idor", StatusAll); len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("title search wrong: %+v", got)
	}
	if got = c.Project("AUTH.", StatusAll); len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("target search wrong: %+v", got)
	}
	if got = c.Project("cwe-79", StatusAll); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("cwe search wrong: %+v", got)
	}
	if got = c.Project("nothing-matches", StatusAll); len(got) != 0 {
		t.Fatalf("expected empty projection: %+v", got)
	}

	// Projection never mutates the working set.
	if all := c.Records(); len(all) != 3 || all[0].ID != 1 {
		t.Fatalf("underlying set mutated: %+v", all)
	}
}

func TestLoadResetsOverlays(t *testing.T) {
	fb := &fakeBackend{}
	c := loaded(t, fb, Record{ID: 1, Status: StatusNew})

	status := StatusResolved
	_ = c.MarkDirty(1, Patch{Status: &status})
	if !c.Dirty(1) {
		t.Fatalf("precondition: record must be dirty")
	}

	if err := c.Load(context.Background(), StatusAll); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Dirty(1) || c.Saving(1) {
		t.Fatalf("overlays must reset on load")
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	fb := &fakeBackend{}
	var calls int32
	started := make(chan struct{})
	release := make(chan []Record)
	fb.list = func(context.Context, Status) ([]Record, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(started)
			return <-release, nil
		}
		return []Record{{ID: 2, Title: "fresh"}}, nil
	}
	c := NewCollection(fb)

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background(), StatusAll) }()
	<-started

	// A newer load completes while the first is still in flight.
	if err := c.Load(context.Background(), StatusAll); err != nil {
		t.Fatalf("second Load: %v", err)
	}

	release <- []Record{{ID: 1, Title: "stale"}}
	if err := <-done; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale load must be discarded, got %v", err)
	}

	recs := c.Records()
	if len(recs) != 1 || recs[0].ID != 2 {
		t.Fatalf("stale data overwrote fresh data: %+v", recs)
	}
}

func TestCreateTriggersFullReload(t *testing.T) {
	fb := &fakeBackend{}
	var mineCalls int32
	fb.mine = func(context.Context) ([]Record, error) {
		atomic.AddInt32(&mineCalls, 1)
		return []Record{{ID: 7, Title: "sqli", CanDelete: true}}, nil
	}
	fb.create = func(_ context.Context, draft Draft) (Record, error) {
		if draft.Title != "sqli" {
			return Record{}, errors.New("draft not forwarded")
		}
		return Record{ID: 7, Title: "sqli"}, nil
	}

	c := NewCollection(fb)
	if err := c.LoadMine(context.Background()); err != nil {
		t.Fatalf("LoadMine: %v", err)
	}

	created, err := c.Create(context.Background(), Draft{Title: "sqli"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID != 7 {
		t.Fatalf("created record: %+v", created)
	}
	if atomic.LoadInt32(&mineCalls) != 2 {
		t.Fatalf("create must re-sync with a full load, mine calls = %d", mineCalls)
	}
	recs := c.Records()
	if len(recs) != 1 || !recs[0].CanDelete {
		t.Fatalf("server-assigned fields missing after re-sync: %+v", recs)
	}
}

func TestRemoveRequiresConfirmationAndBackendAck(t *testing.T) {
	fb := &fakeBackend{}
	var deleted int32
	fb.del = func(_ context.Context, id int64) error {
		atomic.AddInt32(&deleted, 1)
		return nil
	}
	c := loaded(t, fb,
		Record{ID: 1, CanDelete: true, CreatedAt: ts(0)},
		Record{ID: 2, CanDelete: true, CreatedAt: ts(1)},
		Record{ID: 3, CanDelete: false, CreatedAt: ts(2)},
	)

	if err := c.Remove(context.Background(), 1, false); !errors.Is(err, ErrNotConfirmed) {
		t.Fatalf("unconfirmed delete: %v", err)
	}
	if atomic.LoadInt32(&deleted) != 0 {
		t.Fatalf("backend called without confirmation")
	}

	if err := c.Remove(context.Background(), 3, true); !errors.Is(err, ErrDeleteForbidden) {
		t.Fatalf("delete of protected record: %v", err)
	}

	if err := c.Remove(context.Background(), 1, true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	recs := c.Records()
	if len(recs) != 2 || recs[0].ID != 2 || recs[1].ID != 3 {
		t.Fatalf("remaining records reordered: %+v", recs)
	}
}

func TestRemoveKeepsRecordOnBackendFailure(t *testing.T) {
	fb := &fakeBackend{}
	fb.del = func(context.Context, int64) error { return errors.New("backend down") }
	c := loaded(t, fb, Record{ID: 1, CanDelete: true})

	if err := c.Remove(context.Background(), 1, true); err == nil {
		t.Fatalf("expected delete failure")
	}
	if _, ok := c.Record(1); !ok {
		t.Fatalf("record removed without backend confirmation")
	}
}

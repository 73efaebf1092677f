package reports

import (
	"context"
	"fmt"
	"strconv"

	"huntlab.org/internal/audit"
	"huntlab.org/internal/obs"
)

// EditPhase is the tagged edit state of one record. A single variant
// instead of independent dirty/saving booleans, so the contradictory
// combinations cannot be represented.
type EditPhase uint8

const (
	EditClean EditPhase = iota
	EditDirty
	EditSaving
)

func (p EditPhase) String() string {
	switch p {
	case EditDirty:
		return "dirty"
	case EditSaving:
		return "saving"
	default:
		return "clean"
	}
}

// overlay is the transient per-record edit state, kept apart from the
// record itself so it can never leak into a payload. resume is the phase to
// restore when an in-flight save or reload fails.
type overlay struct {
	phase  EditPhase
	resume EditPhase
}

func (c *Collection) overlayFor(id int64) *overlay {
	ov, ok := c.overlays[id]
	if !ok {
		ov = &overlay{}
		c.overlays[id] = ov
	}
	return ov
}

// Phase reports the edit state of a record.
func (c *Collection) Phase(id int64) (EditPhase, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.find(id); !ok {
		return EditClean, false
	}
	ov, ok := c.overlays[id]
	if !ok {
		return EditClean, true
	}
	return ov.phase, true
}

// Dirty reports whether the record carries uncommitted local edits,
// including edits currently being written.
func (c *Collection) Dirty(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ov, ok := c.overlays[id]
	if !ok {
		return false
	}
	return ov.phase == EditDirty || (ov.phase == EditSaving && ov.resume == EditDirty)
}

// Saving reports whether a save or reload is in flight for the record.
func (c *Collection) Saving(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ov, ok := c.overlays[id]
	return ok && ov.phase == EditSaving
}

// MarkDirty merges a local status/rating patch into the in-memory record
// without any network traffic. Rating patches are clamped. The record must
// not have a save or reload in flight; callers enforce that by disabling
// edits while Saving reports true.
func (c *Collection) MarkDirty(id int64, patch Patch) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, ok := c.find(id)
	if !ok {
		return ErrUnknownRecord
	}
	ov := c.overlayFor(id)
	if ov.phase == EditSaving {
		return ErrSaveInFlight
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}
	if patch.Rating != nil {
		rec.Rating = ClampRating(float64(*patch.Rating))
	}
	ov.phase = EditDirty
	return nil
}

// Save pushes the record's current local status and rating to the backend.
// Whatever local snapshot exists at call time is what gets sent. On success
// the server's authoritative echo replaces the local copy and the record
// becomes clean; on failure only the saving state rolls back, so no edit is
// silently lost. There is no automatic retry.
func (c *Collection) Save(ctx context.Context, id int64) error {
	c.mu.Lock()
	rec, ok := c.find(id)
	if !ok {
		c.mu.Unlock()
		return ErrUnknownRecord
	}
	ov := c.overlayFor(id)
	if ov.phase == EditSaving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	if ov.phase != EditDirty {
		c.mu.Unlock()
		return ErrNotDirty
	}
	status := rec.Status
	rating := rec.Rating
	ov.phase = EditSaving
	ov.resume = EditDirty
	c.mu.Unlock()

	patch := Patch{Status: &status, Rating: &rating}
	updated, err := c.backend.UpdateReport(ctx, id, patch)

	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok = c.find(id)
	ov, present := c.overlays[id]
	if !ok || !present {
		// A full load replaced the set while saving; nothing to reconcile.
		return err
	}
	if err != nil {
		ov.phase = ov.resume
		obs.ObserveEditOutcome("save", "error")
		return fmt.Errorf("save report %d: %w", id, err)
	}
	*rec = updated
	ov.phase = EditClean
	obs.ObserveEditOutcome("save", "ok")
	_ = audit.LogEvent(ctx, "report.saved", map[string]any{"id": id, "status": string(updated.Status), "rating": strconv.Itoa(int(updated.Rating))})
	return nil
}

// Discard re-fetches the authoritative record and replaces the local copy
// wholesale, dropping any pending edits. On failure the local edits remain.
func (c *Collection) Discard(ctx context.Context, id int64) error {
	c.mu.Lock()
	if _, ok := c.find(id); !ok {
		c.mu.Unlock()
		return ErrUnknownRecord
	}
	ov := c.overlayFor(id)
	if ov.phase == EditSaving {
		c.mu.Unlock()
		return ErrSaveInFlight
	}
	ov.resume = ov.phase
	ov.phase = EditSaving
	c.mu.Unlock()

	fetched, err := c.backend.GetReport(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.find(id)
	ov, present := c.overlays[id]
	if !ok || !present {
		return err
	}
	if err != nil {
		ov.phase = ov.resume
		obs.ObserveEditOutcome("discard", "error")
		return fmt.Errorf("reload report %d: %w", id, err)
	}
	*rec = fetched
	ov.phase = EditClean
	obs.ObserveEditOutcome("discard", "ok")
	_ = audit.LogEvent(ctx, "report.reloaded", map[string]any{"id": id})
	return nil
}

package reports

import "errors"

var (
	ErrUnknownRecord   = errors.New("reports: unknown record")
	ErrNotDirty        = errors.New("reports: record has no local edits")
	ErrSaveInFlight    = errors.New("reports: save or reload already in flight for record")
	ErrSuperseded      = errors.New("reports: load superseded by a newer one")
	ErrNotConfirmed    = errors.New("reports: delete requires confirmation")
	ErrDeleteForbidden = errors.New("reports: record may not be deleted")
)

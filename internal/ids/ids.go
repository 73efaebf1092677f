package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier. ULIDs issued by the
// same process are strictly monotonic, so they double as generation tokens:
// comparing two of them with < answers "which was issued first".
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Before reports whether generation a was issued before generation b.
// The empty generation sorts before everything.
func Before(a, b string) bool {
	return a < b
}

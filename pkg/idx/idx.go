// Package idx generates the lexicographically sortable identifiers used to
// correlate HTTP requests (X-Request-ID) and token ids with log lines.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a new ULID-based ID stamped with the current UTC time. Entropy
// is monotonic, so IDs made in the same millisecond sort in creation order.
func New() ID {
	mu.Lock()
	defer mu.Unlock()

	return ID(ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String())
}

func (id ID) String() string { return string(id) }

package internal

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewMessageID returns a lowercase ULID. IDs generated in the same process sort
// in creation order, even within one millisecond. Times outside the range a
// ULID can encode are clamped to it.
func NewMessageID(now time.Time) string {
	ms := idTimestamp(now)

	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ms, entropy)
	if err != nil {
		// Monotonic entropy overflowed within one millisecond.
		id = ulid.Make()
	}
	return strings.ToLower(id.String())
}

func idTimestamp(t time.Time) uint64 {
	if t.Before(time.UnixMilli(0)) {
		return 0
	}
	if ms := ulid.Timestamp(t); ms <= ulid.MaxTime() {
		return ms
	}
	return ulid.MaxTime()
}

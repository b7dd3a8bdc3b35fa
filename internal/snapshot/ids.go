package snapshot

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces a fresh identifier for the given kind
// ("snapshot", "style" or "script").
type IDGenerator func(kind string) string

// TimestampIDs returns the default generator: "eddy-<kind>-<unix millis>-<random>".
// Ids are never reused, even for identical content, so DOM lookups by id are
// unambiguous.
func TimestampIDs(now func() time.Time) IDGenerator {
	if now == nil {
		now = time.Now
	}
	return func(kind string) string {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		return fmt.Sprintf("eddy-%s-%d-%s", kind, now().UnixMilli(), suffix)
	}
}

// SequentialIDs returns a deterministic generator ("<kind>-1", "<kind>-2", ...)
// with one counter per kind. Intended for tests and replays.
func SequentialIDs() IDGenerator {
	counters := make(map[string]int)
	return func(kind string) string {
		counters[kind]++
		return fmt.Sprintf("%s-%d", kind, counters[kind])
	}
}

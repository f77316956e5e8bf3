package tracking

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/banshee-data/sighting.report/internal/monitoring"
	"github.com/google/uuid"
)

const trackIDPrefix = "trk_"

// newRandomUUID is swapped in tests to exercise the fallback path.
var newRandomUUID = uuid.NewRandom

var fallbackSeq atomic.Uint64

// NewTrackID mints a process-unique track identity. IDs are random UUIDs
// read from crypto/rand. If the system entropy source fails, IDs fall
// back to 128 bits from math/rand/v2 (ChaCha8, seeded per process) plus
// a process-local sequence number, which still guarantees uniqueness
// within the process but is no longer unpredictable. The degradation is
// logged once.
func NewTrackID() string {
	id, err := newRandomUUID()
	if err == nil {
		return trackIDPrefix + id.String()
	}

	monitoring.LogOnce("tracking/track-id-fallback",
		"[Tracker] crypto/rand unavailable (%v); track IDs fall back to math/rand", err)
	return fmt.Sprintf("%sx%016x%016x-%d", trackIDPrefix, rand.Uint64(), rand.Uint64(), fallbackSeq.Add(1))
}

package tracker

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"skywatch/internal/reference"
	"skywatch/internal/sbs"
)

// Aircraft is the current state of one airframe, keyed by its lowercase hex
// ident. Optional fields hold the last value any message carried for them.
// Registration, Type and Operator are stamped once when the aircraft is first
// seen and never change afterwards.
type Aircraft struct {
	HexIdent     string
	Callsign     *string
	Altitude     *int
	GroundSpeed  *int
	Track        *int
	Latitude     *float64
	Longitude    *float64
	VerticalRate *int
	Squawk       *string

	Registration string
	Type         string
	Operator     string

	LastSeen     time.Time
	MessageCount uint64
}

// Tracker holds the live aircraft table. All mutation (Merge, Sweep) is
// serialized through one mutex; Snapshot copies under a read lock, so readers
// never observe a half-applied merge.
type Tracker struct {
	mtx        sync.RWMutex
	aircraft   map[string]*Aircraft
	details    reference.Lookup
	staleAfter time.Duration
}

// New creates a tracker. details may be nil, in which case aircraft are never
// enriched. staleAfter is the silence threshold after which Sweep drops an
// aircraft.
func New(details reference.Lookup, staleAfter time.Duration) *Tracker {
	return &Tracker{
		aircraft:   make(map[string]*Aircraft),
		details:    details,
		staleAfter: staleAfter,
	}
}

// Merge folds one decoded message into the table. First sight of an ident
// creates the entry and performs the reference lookup, exactly once for the
// lifetime of the entry. Fields present in the message overwrite; absent
// fields keep their previous value. LastSeen and MessageCount always advance.
func (t *Tracker) Merge(msg *sbs.Message, now time.Time) {
	ident := strings.ToLower(strings.TrimSpace(msg.HexIdent))
	if ident == "" {
		// The decoder guarantees a non-empty ident; anything else is ignored.
		return
	}

	t.mtx.Lock()
	defer t.mtx.Unlock()

	a, ok := t.aircraft[ident]
	if !ok {
		a = &Aircraft{HexIdent: ident}
		if t.details != nil {
			if d, found := t.details.Lookup(ident); found {
				a.Registration = d.Registration
				a.Type = d.Type
				a.Operator = d.Operator
			}
		}
		t.aircraft[ident] = a
		slog.Debug("New aircraft", "ident", ident, "registration", a.Registration)
	}

	if msg.Callsign != nil {
		a.Callsign = msg.Callsign
	}
	if msg.Altitude != nil {
		a.Altitude = msg.Altitude
	}
	if msg.GroundSpeed != nil {
		a.GroundSpeed = msg.GroundSpeed
	}
	if msg.Track != nil {
		a.Track = msg.Track
	}
	if msg.Latitude != nil {
		a.Latitude = msg.Latitude
	}
	if msg.Longitude != nil {
		a.Longitude = msg.Longitude
	}
	if msg.VerticalRate != nil {
		a.VerticalRate = msg.VerticalRate
	}
	if msg.Squawk != nil {
		a.Squawk = msg.Squawk
	}

	a.LastSeen = now
	a.MessageCount++
}

// Sweep removes every aircraft not heard from for staleAfter or longer and
// returns how many were dropped.
func (t *Tracker) Sweep(now time.Time) int {
	t.mtx.Lock()
	defer t.mtx.Unlock()

	removed := 0
	for ident, a := range t.aircraft {
		if now.Sub(a.LastSeen) >= t.staleAfter {
			delete(t.aircraft, ident)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Swept stale aircraft", "removed", removed, "remaining", len(t.aircraft))
	}
	return removed
}

// Snapshot returns a point-in-time copy of every aircraft. The copies share
// no mutable state with the tracker: Merge only ever replaces pointer fields
// with freshly decoded values, so the copied structs are stable after return.
func (t *Tracker) Snapshot() []Aircraft {
	t.mtx.RLock()
	defer t.mtx.RUnlock()

	out := make([]Aircraft, 0, len(t.aircraft))
	for _, a := range t.aircraft {
		out = append(out, *a)
	}
	return out
}

// Len reports the number of tracked aircraft.
func (t *Tracker) Len() int {
	t.mtx.RLock()
	defer t.mtx.RUnlock()
	return len(t.aircraft)
}

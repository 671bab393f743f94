package tracker

import (
	"sync"
	"testing"
	"time"

	"skywatch/internal/reference"
	"skywatch/internal/sbs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLookup counts lookups per ident so tests can assert enrichment happens
// exactly once per aircraft.
type mockLookup struct {
	mtx     sync.Mutex
	details map[string]reference.Details
	calls   map[string]int
}

func newMockLookup(details map[string]reference.Details) *mockLookup {
	return &mockLookup{
		details: details,
		calls:   map[string]int{},
	}
}

func (m *mockLookup) Lookup(hexIdent string) (reference.Details, bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.calls[hexIdent]++
	d, ok := m.details[hexIdent]
	return d, ok
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

func findAircraft(t *testing.T, snapshot []Aircraft, ident string) Aircraft {
	t.Helper()
	for _, a := range snapshot {
		if a.HexIdent == ident {
			return a
		}
	}
	t.Fatalf("aircraft %s not in snapshot", ident)
	return Aircraft{}
}

func TestTracker_MergeCreatesAndUpdates(t *testing.T) {
	trk := New(nil, time.Minute)
	now := time.Now()

	trk.Merge(&sbs.Message{
		HexIdent: "ABC123",
		Altitude: intPtr(35000),
		Latitude: floatPtr(42.1),
	}, now)

	require.Equal(t, 1, trk.Len())
	a := findAircraft(t, trk.Snapshot(), "abc123")
	require.NotNil(t, a.Altitude)
	assert.Equal(t, 35000, *a.Altitude)
	require.NotNil(t, a.Latitude)
	assert.Equal(t, 42.1, *a.Latitude)
	assert.Nil(t, a.Callsign)
	assert.Equal(t, uint64(1), a.MessageCount)
	assert.Equal(t, now, a.LastSeen)
}

// Merging a sequence of sparse messages must leave each field equal to the
// last message that carried it, with never-carried fields still absent.
func TestTracker_MergeIsLeftFold(t *testing.T) {
	trk := New(nil, time.Minute)
	now := time.Now()

	msgs := []*sbs.Message{
		{HexIdent: "ABC123", Altitude: intPtr(10000), GroundSpeed: intPtr(250)},
		{HexIdent: "ABC123", Callsign: strPtr("BAW123")},
		{HexIdent: "ABC123", Altitude: intPtr(12000)},
		{HexIdent: "ABC123", Latitude: floatPtr(51.5), Longitude: floatPtr(-0.1)},
	}
	for i, msg := range msgs {
		trk.Merge(msg, now.Add(time.Duration(i)*time.Second))
	}

	a := findAircraft(t, trk.Snapshot(), "abc123")
	require.NotNil(t, a.Altitude)
	assert.Equal(t, 12000, *a.Altitude) // last writer wins
	require.NotNil(t, a.GroundSpeed)
	assert.Equal(t, 250, *a.GroundSpeed) // untouched since first message
	require.NotNil(t, a.Callsign)
	assert.Equal(t, "BAW123", *a.Callsign)
	require.NotNil(t, a.Latitude)
	assert.Equal(t, 51.5, *a.Latitude)
	assert.Nil(t, a.Squawk) // never carried by any message
	assert.Nil(t, a.VerticalRate)

	assert.Equal(t, uint64(len(msgs)), a.MessageCount)
	assert.Equal(t, now.Add(3*time.Second), a.LastSeen)
}

func TestTracker_IdentNormalizedToLowercase(t *testing.T) {
	trk := New(nil, time.Minute)
	now := time.Now()

	trk.Merge(&sbs.Message{HexIdent: "AbC123"}, now)
	trk.Merge(&sbs.Message{HexIdent: "ABC123"}, now)
	trk.Merge(&sbs.Message{HexIdent: "abc123"}, now)

	require.Equal(t, 1, trk.Len())
	a := findAircraft(t, trk.Snapshot(), "abc123")
	assert.Equal(t, uint64(3), a.MessageCount)
}

func TestTracker_EmptyIdentIgnored(t *testing.T) {
	trk := New(nil, time.Minute)
	trk.Merge(&sbs.Message{HexIdent: "   "}, time.Now())
	assert.Equal(t, 0, trk.Len())
}

func TestTracker_EnrichmentExactlyOnce(t *testing.T) {
	lookup := newMockLookup(map[string]reference.Details{
		"abc123": {Registration: "G-ABCD", Type: "A320", Operator: "British Airways"},
	})
	trk := New(lookup, time.Minute)
	now := time.Now()

	for i := 0; i < 10; i++ {
		trk.Merge(&sbs.Message{HexIdent: "ABC123", Altitude: intPtr(i)}, now)
	}

	assert.Equal(t, 1, lookup.calls["abc123"])

	a := findAircraft(t, trk.Snapshot(), "abc123")
	assert.Equal(t, "G-ABCD", a.Registration)
	assert.Equal(t, "A320", a.Type)
	assert.Equal(t, "British Airways", a.Operator)
}

func TestTracker_EnrichmentMissLeavesFieldsEmpty(t *testing.T) {
	lookup := newMockLookup(nil)
	trk := New(lookup, time.Minute)

	trk.Merge(&sbs.Message{HexIdent: "DEF456"}, time.Now())

	a := findAircraft(t, trk.Snapshot(), "def456")
	assert.Empty(t, a.Registration)
	assert.Empty(t, a.Type)
	assert.Empty(t, a.Operator)
	assert.Equal(t, 1, lookup.calls["def456"])
}

func TestTracker_SweepDropsExactlyStaleEntries(t *testing.T) {
	trk := New(nil, 60*time.Second)
	now := time.Now()

	ages := map[string]time.Duration{
		"aaa": 10 * time.Second,
		"bbb": 59 * time.Second,
		"ccc": 60 * time.Second,
		"ddd": 61 * time.Second,
	}
	for ident, age := range ages {
		trk.Merge(&sbs.Message{HexIdent: ident}, now.Add(-age))
	}
	require.Equal(t, 4, trk.Len())

	removed := trk.Sweep(now)
	assert.Equal(t, 2, removed)

	snapshot := trk.Snapshot()
	require.Len(t, snapshot, 2)
	findAircraft(t, snapshot, "aaa")
	findAircraft(t, snapshot, "bbb")
}

func TestTracker_SweepLeavesSurvivorsUntouched(t *testing.T) {
	trk := New(nil, 60*time.Second)
	now := time.Now()

	trk.Merge(&sbs.Message{
		HexIdent: "AAA111",
		Altitude: intPtr(35000),
		Callsign: strPtr("KLM1023"),
	}, now.Add(-10*time.Second))
	trk.Merge(&sbs.Message{HexIdent: "BBB222"}, now.Add(-2*time.Minute))

	before := findAircraft(t, trk.Snapshot(), "aaa111")
	trk.Sweep(now)
	after := findAircraft(t, trk.Snapshot(), "aaa111")

	assert.Equal(t, before, after)
	assert.Equal(t, 1, trk.Len())
}

// Each merge writes Altitude and GroundSpeed together with the same value,
// so any snapshot that observes them unequal has seen a torn merge.
func TestTracker_SnapshotNeverTorn(t *testing.T) {
	trk := New(nil, time.Minute)
	now := time.Now()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5000; i++ {
			trk.Merge(&sbs.Message{
				HexIdent:    "ABC123",
				Altitude:    intPtr(i),
				GroundSpeed: intPtr(i),
			}, now)
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		for _, a := range trk.Snapshot() {
			require.NotNil(t, a.Altitude)
			require.NotNil(t, a.GroundSpeed)
			assert.Equal(t, *a.Altitude, *a.GroundSpeed)
		}
	}
}

func TestTracker_SnapshotIsACopy(t *testing.T) {
	trk := New(nil, time.Minute)
	now := time.Now()

	trk.Merge(&sbs.Message{HexIdent: "ABC123", Altitude: intPtr(1000)}, now)
	snapshot := trk.Snapshot()
	require.Len(t, snapshot, 1)

	trk.Merge(&sbs.Message{HexIdent: "ABC123", Altitude: intPtr(2000)}, now)

	// The earlier snapshot still shows the state at the time it was taken.
	assert.Equal(t, 1000, *snapshot[0].Altitude)
	assert.Equal(t, uint64(1), snapshot[0].MessageCount)
}

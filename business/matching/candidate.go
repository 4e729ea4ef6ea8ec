// Package matching implements the vehicle-to-scheduled-trip matching engine:
// candidate trip retrieval over a rolling time window, geometric and temporal
// scoring of vehicle/candidate pairs, and a greedy assignment that resolves
// competing claims to the same trip.
package matching

import (
	"time"
)

// TripCandidate is one scheduled trip materialised from the schedule store for
// matching against live vehicle reports during a single polling tick.
type TripCandidate struct {
	// TripId is the stable schedule identifier for the trip
	TripId string
	// Direction is the provider specific direction code, nil for providers
	// without a direction encoding
	Direction *int
	// Route is the ordered list of stop ids the trip serves
	Route []string
	// Times holds the scheduled departure for each stop in Route as
	// day-relative schedule seconds. Values past 86400 represent post-midnight
	// continuations of the service day.
	Times []int
	// Seqs holds the schedule stop sequence number for each stop in Route
	Seqs []uint32
	// Date is the 12am time of the service day the candidate was retrieved under
	Date time.Time
}

// Scorable reports whether the candidate can be scored. A candidate needs at
// least two index-aligned stops to form a route segment.
func (c *TripCandidate) Scorable() bool {
	if len(c.Route) < 2 {
		return false
	}
	return len(c.Route) == len(c.Times) && len(c.Route) == len(c.Seqs)
}

// LastStopSequence returns the final stop sequence number on the candidate,
// or zero for an empty candidate.
func (c *TripCandidate) LastStopSequence() uint32 {
	if len(c.Seqs) == 0 {
		return 0
	}
	return c.Seqs[len(c.Seqs)-1]
}

// TripInfo is the scored outcome of one vehicle and candidate pair.
type TripInfo struct {
	// Candidate indexes into the tick's candidate array
	Candidate int
	// Diff is the non-negative seconds between the report time and the
	// interpolated scheduled time at the vehicle's projected position.
	// Smaller is a better match.
	Diff float64
	// StopIndex is the index of the stop the vehicle is currently heading
	// toward, the end of its closest route segment.
	StopIndex int
}

// TripCandidateList holds one vehicle's remaining viable matches. Entries are
// removed destructively while AssignTrips runs, as trips are claimed by other
// vehicles.
type TripCandidateList struct {
	Vehicle int
	Cands   []TripInfo
}

// StopPosition is a stop coordinate used to build route segments for scoring
type StopPosition struct {
	Longitude float64
	Latitude  float64
}

// CandidateSource retrieves candidate trips for one provider's schedule
// subset. Implementations encode that provider's own direction and service
// calendar conventions; the retriever only decides which service days and
// day-relative windows to ask for.
//
// startSeconds and endSeconds are day-relative schedule seconds against
// serviceDay and may be negative or exceed 86400.
type CandidateSource interface {
	CandidatesBetween(serviceDay time.Time, startSeconds int, endSeconds int, specifier string) ([]TripCandidate, error)
}

// CandidateSourceFunc adapts a plain function to the CandidateSource interface
type CandidateSourceFunc func(serviceDay time.Time, startSeconds int, endSeconds int, specifier string) ([]TripCandidate, error)

// CandidatesBetween implements CandidateSource
func (f CandidateSourceFunc) CandidatesBetween(serviceDay time.Time, startSeconds int, endSeconds int, specifier string) ([]TripCandidate, error) {
	return f(serviceDay, startSeconds, endSeconds, specifier)
}

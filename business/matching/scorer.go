package matching

import (
	"math"
	"time"
)

// ScoreTrip projects the vehicle at lon, lat onto candidate's route polyline
// and produces the TripInfo for candidateIndex.
//
// The route polyline is built from stopPositions; a stop missing from the
// lookup degrades to the zero coordinate rather than aborting the score, so a
// schedule store data gap distorts one candidate instead of dropping it.
// The closest segment is chosen first-minimum in segment order, which keeps
// scoring deterministic when a vehicle sits equidistant from two segments.
//
// The expected time at the projected position is interpolated linearly between
// the scheduled departures at the segment's endpoints; Diff is the absolute
// seconds between now and that expected time.
//
// candidate must be Scorable; unscorable candidates are filtered during
// retrieval and must never reach this function.
func ScoreTrip(candidateIndex int, candidate *TripCandidate, lon float64, lat float64,
	now time.Time, stopPositions map[string]StopPosition) TripInfo {

	closestSegment := 0
	closestDistance := math.MaxFloat64

	for i := 0; i+1 < len(candidate.Route); i++ {
		from := stopPositions[candidate.Route[i]]
		to := stopPositions[candidate.Route[i+1]]
		_, nearestLat, nearestLon := segmentProjection(from.Latitude, from.Longitude,
			to.Latitude, to.Longitude, lat, lon)
		distance := simpleLatLngDistance(lat, lon, nearestLat, nearestLon)
		if distance < closestDistance {
			closestDistance = distance
			closestSegment = i
		}
	}

	from := stopPositions[candidate.Route[closestSegment]]
	to := stopPositions[candidate.Route[closestSegment+1]]
	pct, _, _ := segmentProjection(from.Latitude, from.Longitude,
		to.Latitude, to.Longitude, lat, lon)

	fromSeconds := float64(candidate.Times[closestSegment])
	toSeconds := float64(candidate.Times[closestSegment+1])
	expectedSeconds := fromSeconds + (toSeconds-fromSeconds)*pct
	expectedTime := makeScheduleTimeFraction(candidate.Date, expectedSeconds)

	diff := now.Sub(expectedTime).Seconds()
	if diff < 0 {
		diff = -diff
	}

	return TripInfo{
		Candidate: candidateIndex,
		Diff:      diff,
		StopIndex: closestSegment + 1,
	}
}

// ScoreCandidates scores one vehicle report against every candidate and
// returns the vehicle's TripCandidateList, or nil if there are no candidates.
func ScoreCandidates(vehicle int, candidates []TripCandidate, lon float64, lat float64,
	now time.Time, stopPositions map[string]StopPosition) *TripCandidateList {

	if len(candidates) == 0 {
		return nil
	}
	infos := make([]TripInfo, 0, len(candidates))
	for i := range candidates {
		infos = append(infos, ScoreTrip(i, &candidates[i], lon, lat, now, stopPositions))
	}
	return &TripCandidateList{
		Vehicle: vehicle,
		Cands:   infos,
	}
}

package matching

import (
	"time"
)

const (
	// candidateWindow is how far either side of "now" the retriever looks for
	// scheduled trips
	candidateWindow = time.Hour
	// midnightLookPastSeconds extends a previous-day query two hours past local
	// midnight to catch post-midnight continuations of that service day
	midnightLookPastSeconds = 7200
	// forwardMarginSeconds pads the current-day query when the window crosses
	// midnight forward, absorbing clock skew between providers and the store
	forwardMarginSeconds = 3600
)

// GetTripCandidates retrieves every candidate trip for specifier whose
// schedule falls inside [now-1h, now+1h], querying source once or twice
// depending on how the window sits against local midnight.
//
// Schedule times are day-relative and may run past 24h, so a window that
// crosses midnight has to be expressed against two service days: the query
// bounds below, including the literal 7200s and 3600s offsets, are part of the
// matching behaviour and deliberately kept exact.
//
// Candidates with fewer than two stops cannot be scored and are filtered here.
// Duplicate trips across the two queries are tolerated; assignment is
// idempotent to duplicate trip ids.
func GetTripCandidates(now time.Time, specifier string, source CandidateSource) ([]TripCandidate, error) {
	windowStart := now.Add(-candidateWindow)
	windowEnd := now.Add(candidateWindow)
	serviceDay := Get12AmTime(now)

	var candidates []TripCandidate
	var err error

	switch {
	case windowStart.Hour() > now.Hour():
		// window crosses midnight backward: look at the tail of the previous
		// service day past local midnight, then the start of the current day
		previousDay := serviceDay.AddDate(0, 0, -1)
		startSeconds := SecondsIntoServiceDay(windowStart, previousDay)
		candidates, err = source.CandidatesBetween(previousDay, startSeconds, startSeconds+midnightLookPastSeconds, specifier)
		if err != nil {
			return nil, err
		}
		var current []TripCandidate
		current, err = source.CandidatesBetween(serviceDay, 0, SecondsIntoServiceDay(windowEnd, serviceDay), specifier)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, current...)

	case windowEnd.Hour() < now.Hour():
		// window crosses midnight forward: current day runs past 24h with a
		// skew margin, next day is queried around its own early seconds
		nextDay := serviceDay.AddDate(0, 0, 1)
		candidates, err = source.CandidatesBetween(serviceDay,
			SecondsIntoServiceDay(windowStart, serviceDay),
			SecondsIntoServiceDay(windowEnd, serviceDay)+forwardMarginSeconds,
			specifier)
		if err != nil {
			return nil, err
		}
		endSeconds := SecondsIntoServiceDay(windowEnd, nextDay)
		var next []TripCandidate
		next, err = source.CandidatesBetween(nextDay, endSeconds-midnightLookPastSeconds, endSeconds, specifier)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, next...)

	default:
		// window fully inside one service day
		candidates, err = source.CandidatesBetween(serviceDay,
			SecondsIntoServiceDay(windowStart, serviceDay),
			SecondsIntoServiceDay(windowEnd, serviceDay),
			specifier)
		if err != nil {
			return nil, err
		}
	}

	return filterScorable(candidates), nil
}

// filterScorable drops candidates that can never reach the scorer
func filterScorable(candidates []TripCandidate) []TripCandidate {
	results := make([]TripCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Scorable() {
			results = append(results, candidate)
		}
	}
	return results
}

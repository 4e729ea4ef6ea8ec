package matching

// AssignTrips resolves a conflict-free vehicle to trip assignment from the
// tick's scored candidate lists. The returned map is keyed by vehicle index.
//
// The algorithm is a global greedy: each round every remaining vehicle
// nominates its lowest-Diff candidate, the single globally best nomination is
// committed, the winning vehicle leaves contention, and every other vehicle
// loses any candidate sharing the committed trip id. Vehicles whose list
// empties out receive no assignment for the tick, which is not an error.
//
// Uniqueness is on trip id, not candidate index; the same trip can appear as
// distinct candidate entries, for example across direction variants or
// duplicated midnight-window queries.
//
// This is a deliberate approximation of weighted bipartite matching that
// prioritises the single most confident match each round. It is not globally
// cost optimal and downstream consumers depend on its exact tie breaking, so
// it must not be replaced with an optimal matching. Ties resolve to the lowest
// vehicle index, then the lowest candidate index.
//
// lists is consumed destructively.
func AssignTrips(lists []*TripCandidateList, candidates []TripCandidate) map[int]TripInfo {
	assignments := make(map[int]TripInfo)

	remaining := make([]*TripCandidateList, 0, len(lists))
	for _, list := range lists {
		if list != nil && len(list.Cands) > 0 {
			remaining = append(remaining, list)
		}
	}

	for len(remaining) > 0 {
		bestIndex := -1
		var best TripInfo
		bestVehicle := 0

		for i, list := range remaining {
			nomination := bestForVehicle(list)
			if bestIndex == -1 || betterNomination(nomination, list.Vehicle, best, bestVehicle) {
				bestIndex = i
				best = nomination
				bestVehicle = list.Vehicle
			}
		}

		assignments[bestVehicle] = best
		claimedTripId := candidates[best.Candidate].TripId

		next := make([]*TripCandidateList, 0, len(remaining)-1)
		for i, list := range remaining {
			if i == bestIndex {
				continue
			}
			list.Cands = removeClaimedTrip(list.Cands, claimedTripId, candidates)
			if len(list.Cands) > 0 {
				next = append(next, list)
			}
		}
		remaining = next
	}

	return assignments
}

// bestForVehicle returns the vehicle's current lowest-Diff candidate,
// preferring the lower candidate index on equal Diff
func bestForVehicle(list *TripCandidateList) TripInfo {
	best := list.Cands[0]
	for _, info := range list.Cands[1:] {
		if info.Diff < best.Diff || (info.Diff == best.Diff && info.Candidate < best.Candidate) {
			best = info
		}
	}
	return best
}

// betterNomination reports whether nomination for vehicle beats the current
// best nomination under the global tie rules
func betterNomination(nomination TripInfo, vehicle int, best TripInfo, bestVehicle int) bool {
	if nomination.Diff != best.Diff {
		return nomination.Diff < best.Diff
	}
	if vehicle != bestVehicle {
		return vehicle < bestVehicle
	}
	return nomination.Candidate < best.Candidate
}

// removeClaimedTrip filters out every TripInfo whose candidate carries tripId
func removeClaimedTrip(infos []TripInfo, tripId string, candidates []TripCandidate) []TripInfo {
	results := infos[:0]
	for _, info := range infos {
		if candidates[info.Candidate].TripId != tripId {
			results = append(results, info)
		}
	}
	return results
}

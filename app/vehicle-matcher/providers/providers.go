// Package providers contains the adapters for each transit data source: raw
// feed parsing, specifier and candidate query conventions, and the shared
// pipeline that turns one tick's vehicle reports into canonical vehicle
// position records.
package providers

import (
	"log"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/transitlive/tripmatch/app/vehicle-matcher/feed"
	"github.com/transitlive/tripmatch/business/matching"
)

// report is one parsed vehicle position from a provider feed, reduced to what
// the matching engine needs.
type report struct {
	// VehicleId is the provider's own vehicle identifier
	VehicleId string
	Longitude float64
	Latitude  float64
	Bearing   *float32
	// Timestamp is the unix seconds the provider recorded the position
	Timestamp int64
	// Specifier selects the schedule subset to search for this vehicle
	Specifier string
	// RouteId keys the stop position lookup and the published route id
	RouteId string
}

// stopPositionLookup resolves the stop coordinate map for a route, normally
// schedule.Store.StopPositions
type stopPositionLookup func(routeId string) (map[string]matching.StopPosition, error)

// pipeline is the shared fetchless half of a provider tick: retrieve
// candidates per specifier, score every vehicle, run one global assignment,
// and synthesize the canonical records.
type pipeline struct {
	log          *log.Logger
	stops        stopPositionLookup
	scoreWorkers int
}

func makePipeline(log *log.Logger, stops stopPositionLookup, scoreWorkers int) pipeline {
	if scoreWorkers < 1 {
		scoreWorkers = 1
	}
	return pipeline{
		log:          log,
		stops:        stops,
		scoreWorkers: scoreWorkers,
	}
}

// specifierGroup gathers the vehicles of one tick sharing a specifier, so the
// candidate set and stop positions are retrieved once per specifier.
type specifierGroup struct {
	specifier string
	routeId   string
	vehicles  []int
}

// matchReports resolves one tick of reports to vehicle updates for source.
//
// Scoring is data parallel across the vehicles of each specifier group; the
// assignment over the full vehicle set is sequential by design. Vehicles that
// receive no assignment are omitted from the result, never reported as an
// error. Everything built here is discarded when the tick ends.
func (p *pipeline) matchReports(now time.Time, source string, reports []report,
	candidateSource matching.CandidateSource) []*feed.VehicleUpdate {

	groups := groupBySpecifier(reports)

	var candidates []matching.TripCandidate
	lists := make([]*matching.TripCandidateList, 0, len(reports))

	for _, group := range groups {
		groupCandidates, err := matching.GetTripCandidates(now, group.specifier, candidateSource)
		if err != nil {
			p.log.Printf("error retrieving candidates for %s specifier %s, skipping its vehicles. error:%v\n",
				source, group.specifier, err)
			continue
		}
		if len(groupCandidates) == 0 {
			continue
		}

		stopPositions, err := p.stops(group.routeId)
		if err != nil {
			p.log.Printf("error retrieving stop positions for %s route %s, skipping its vehicles. error:%v\n",
				source, group.routeId, err)
			continue
		}

		offset := len(candidates)
		candidates = append(candidates, groupCandidates...)

		workers := pool.NewWithResults[*matching.TripCandidateList]().WithMaxGoroutines(p.scoreWorkers)
		for _, vehicle := range group.vehicles {
			vehicle := vehicle
			r := reports[vehicle]
			workers.Go(func() *matching.TripCandidateList {
				return matching.ScoreCandidates(vehicle, groupCandidates,
					r.Longitude, r.Latitude, now, stopPositions)
			})
		}
		for _, list := range workers.Wait() {
			if list == nil {
				continue
			}
			// rebase candidate indexes from the group onto the tick's array
			for i := range list.Cands {
				list.Cands[i].Candidate += offset
			}
			lists = append(lists, list)
		}
	}

	assignments := matching.AssignTrips(lists, candidates)

	// walk vehicles in report order so the published tick is stable
	results := make([]*feed.VehicleUpdate, 0, len(assignments))
	for vehicle := 0; vehicle < len(reports); vehicle++ {
		info, assigned := assignments[vehicle]
		if !assigned {
			continue
		}
		results = append(results, synthesizeUpdate(source, &reports[vehicle], &candidates[info.Candidate], info))
	}
	return results
}

// groupBySpecifier partitions report indexes by specifier, preserving first
// appearance order
func groupBySpecifier(reports []report) []specifierGroup {
	index := make(map[string]int)
	var groups []specifierGroup
	for i, r := range reports {
		gi, present := index[r.Specifier]
		if !present {
			gi = len(groups)
			index[r.Specifier] = gi
			groups = append(groups, specifierGroup{
				specifier: r.Specifier,
				routeId:   r.RouteId,
			})
		}
		groups[gi].vehicles = append(groups[gi].vehicles, i)
	}
	return groups
}

// synthesizeUpdate builds the canonical vehicle position record for one
// assigned vehicle
func synthesizeUpdate(source string, r *report, candidate *matching.TripCandidate,
	info matching.TripInfo) *feed.VehicleUpdate {

	stopIndex := info.StopIndex
	// clamp to the trip's final stop
	if stopIndex >= len(candidate.Seqs) {
		stopIndex = len(candidate.Seqs) - 1
	}

	return &feed.VehicleUpdate{
		EntityId:     source + "-" + r.VehicleId + "-" + candidate.TripId,
		TripId:       candidate.TripId,
		RouteId:      r.RouteId,
		StartTime:    matching.ScheduleTimeString(candidate.Times[0]),
		StartDate:    matching.ServiceDateString(candidate.Date),
		Latitude:     float32(r.Latitude),
		Longitude:    float32(r.Longitude),
		Bearing:      r.Bearing,
		StopSequence: candidate.Seqs[stopIndex],
		StopId:       candidate.Route[stopIndex],
		Timestamp:    r.Timestamp,
	}
}

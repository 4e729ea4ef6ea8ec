package providers

import (
	"fmt"
	"log"
	"time"

	"github.com/transitlive/tripmatch/app/vehicle-matcher/feed"
	"github.com/transitlive/tripmatch/business/data/schedule"
	"github.com/transitlive/tripmatch/business/matching"
	"github.com/transitlive/tripmatch/foundation/httpclient"
)

// firstmileShuttle is one shuttle of the first-mile positioning feed. The
// fleet is small and reports sparsely: no direction axis, no trip hints,
// millisecond timestamps.
type firstmileShuttle struct {
	Id       string `json:"id"`
	Route    string `json:"route"`
	Position struct {
		Longitude float64 `json:"lng"`
		Latitude  float64 `json:"lat"`
	} `json:"position"`
	TimestampMillis int64 `json:"ts"`
}

// FirstmileProvider refines the first-mile shuttle positions onto scheduled
// trips
type FirstmileProvider struct {
	log      *log.Logger
	client   *httpclient.Client
	store    *schedule.Store
	pipeline pipeline
	url      string
	interval time.Duration
}

// MakeFirstmileProvider builds a FirstmileProvider polling url every interval
func MakeFirstmileProvider(log *log.Logger,
	client *httpclient.Client,
	store *schedule.Store,
	url string,
	interval time.Duration,
	scoreWorkers int) *FirstmileProvider {
	return &FirstmileProvider{
		log:      log,
		client:   client,
		store:    store,
		pipeline: makePipeline(log, store.StopPositions, scoreWorkers),
		url:      url,
		interval: interval,
	}
}

// Name implements matcher.Provider
func (p *FirstmileProvider) Name() string {
	return "firstmile"
}

// Interval implements matcher.Provider
func (p *FirstmileProvider) Interval() time.Duration {
	return p.interval
}

// Poll fetches the shuttle feed and matches every report against its route's
// scheduled trips
func (p *FirstmileProvider) Poll(now time.Time) ([]*feed.VehicleUpdate, []*feed.Alert, error) {
	var raw []firstmileShuttle
	if err := p.client.GetJSON(p.url, &raw); err != nil {
		return nil, nil, fmt.Errorf("fetching firstmile positions: %w", err)
	}

	reports := make([]report, 0, len(raw))
	for _, shuttle := range raw {
		if shuttle.Id == "" || shuttle.Route == "" {
			continue
		}
		timestamp := shuttle.TimestampMillis / 1000
		if timestamp == 0 {
			timestamp = now.Unix()
		}
		reports = append(reports, report{
			VehicleId: shuttle.Id,
			Longitude: shuttle.Position.Longitude,
			Latitude:  shuttle.Position.Latitude,
			Timestamp: timestamp,
			Specifier: shuttle.Route,
			RouteId:   shuttle.Route,
		})
	}
	p.log.Printf("loaded %d firstmile positions\n", len(reports))

	updates := p.pipeline.matchReports(now, p.Name(), reports,
		matching.CandidateSourceFunc(p.store.CandidatesForLine))
	return updates, nil, nil
}

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

// tramVehicle is one entry of the tram network's position feed. The network
// has no direction encoding; a line number is the whole specifier.
type tramVehicle struct {
	VehicleId string   `json:"vehicle_id"`
	Line      string   `json:"line"`
	Longitude float64  `json:"lon"`
	Latitude  float64  `json:"lat"`
	Bearing   *float32 `json:"bearing"`
	Timestamp int64    `json:"timestamp"`
}

// TramProvider matches the city tram network's position feed
type TramProvider struct {
	log      *log.Logger
	client   *httpclient.Client
	store    *schedule.Store
	pipeline pipeline
	url      string
	interval time.Duration
}

// MakeTramProvider builds a TramProvider polling url every interval
func MakeTramProvider(log *log.Logger,
	client *httpclient.Client,
	store *schedule.Store,
	url string,
	interval time.Duration,
	scoreWorkers int) *TramProvider {
	return &TramProvider{
		log:      log,
		client:   client,
		store:    store,
		pipeline: makePipeline(log, store.StopPositions, scoreWorkers),
		url:      url,
		interval: interval,
	}
}

// Name implements matcher.Provider
func (p *TramProvider) Name() string {
	return "tram"
}

// Interval implements matcher.Provider
func (p *TramProvider) Interval() time.Duration {
	return p.interval
}

// Poll fetches the tram feed and matches every report against the line's
// scheduled trips
func (p *TramProvider) Poll(now time.Time) ([]*feed.VehicleUpdate, []*feed.Alert, error) {
	var raw []tramVehicle
	if err := p.client.GetJSON(p.url, &raw); err != nil {
		return nil, nil, fmt.Errorf("fetching tram positions: %w", err)
	}

	reports := make([]report, 0, len(raw))
	for _, vehicle := range raw {
		if vehicle.VehicleId == "" || vehicle.Line == "" {
			continue
		}
		timestamp := vehicle.Timestamp
		if timestamp == 0 {
			timestamp = now.Unix()
		}
		reports = append(reports, report{
			VehicleId: vehicle.VehicleId,
			Longitude: vehicle.Longitude,
			Latitude:  vehicle.Latitude,
			Bearing:   vehicle.Bearing,
			Timestamp: timestamp,
			Specifier: vehicle.Line,
			RouteId:   vehicle.Line,
		})
	}
	p.log.Printf("loaded %d tram positions\n", len(reports))

	updates := p.pipeline.matchReports(now, p.Name(), reports,
		matching.CandidateSourceFunc(p.store.CandidatesForLine))
	return updates, nil, nil
}

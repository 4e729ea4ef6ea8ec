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

// platformActivity is one vehicle activity of the multi-operator platform
// feed. The platform publishes stop patterns, so a pattern reference already
// implies line and direction.
type platformActivity struct {
	OperatorRef string  `json:"operator_ref"`
	VehicleRef  string  `json:"vehicle_ref"`
	LineRef     string  `json:"line_ref"`
	PatternRef  string  `json:"pattern_ref"`
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	RecordedAt  string  `json:"recorded_at"`
}

// platformResponse wraps the platform feed's activity list
type platformResponse struct {
	Activities []platformActivity `json:"vehicle_activities"`
}

// PlatformProvider matches the multi-operator open data platform feed
type PlatformProvider struct {
	log      *log.Logger
	client   *httpclient.Client
	store    *schedule.Store
	pipeline pipeline
	url      string
	interval time.Duration
}

// MakePlatformProvider builds a PlatformProvider polling url every interval
func MakePlatformProvider(log *log.Logger,
	client *httpclient.Client,
	store *schedule.Store,
	url string,
	interval time.Duration,
	scoreWorkers int) *PlatformProvider {
	return &PlatformProvider{
		log:      log,
		client:   client,
		store:    store,
		pipeline: makePipeline(log, store.StopPositions, scoreWorkers),
		url:      url,
		interval: interval,
	}
}

// Name implements matcher.Provider
func (p *PlatformProvider) Name() string {
	return "platform"
}

// Interval implements matcher.Provider
func (p *PlatformProvider) Interval() time.Duration {
	return p.interval
}

// Poll fetches the platform feed and matches every activity against its stop
// pattern's scheduled trips
func (p *PlatformProvider) Poll(now time.Time) ([]*feed.VehicleUpdate, []*feed.Alert, error) {
	var response platformResponse
	if err := p.client.GetJSON(p.url, &response); err != nil {
		return nil, nil, fmt.Errorf("fetching platform activities: %w", err)
	}

	reports := make([]report, 0, len(response.Activities))
	for _, activity := range response.Activities {
		if activity.VehicleRef == "" || activity.PatternRef == "" {
			continue
		}
		timestamp := now.Unix()
		if recorded, err := time.Parse(time.RFC3339, activity.RecordedAt); err == nil {
			timestamp = recorded.Unix()
		}
		reports = append(reports, report{
			VehicleId: activity.OperatorRef + "-" + activity.VehicleRef,
			Longitude: activity.Longitude,
			Latitude:  activity.Latitude,
			Timestamp: timestamp,
			Specifier: activity.PatternRef,
			RouteId:   activity.LineRef,
		})
	}
	p.log.Printf("loaded %d platform vehicle activities\n", len(reports))

	updates := p.pipeline.matchReports(now, p.Name(), reports,
		matching.CandidateSourceFunc(p.store.CandidatesForPattern))
	return updates, nil, nil
}

package providers

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/transitlive/tripmatch/app/vehicle-matcher/feed"
	"github.com/transitlive/tripmatch/business/data/schedule"
	"github.com/transitlive/tripmatch/business/matching"
	"github.com/transitlive/tripmatch/foundation/httpclient"
)

// regionalVehicle is one vehicle of the regional operator's position feed.
// Direction is already numeric, 0 or 1.
type regionalVehicle struct {
	Id        string   `json:"id"`
	Route     string   `json:"route"`
	Direction int      `json:"direction"`
	Longitude float64  `json:"lon"`
	Latitude  float64  `json:"lat"`
	Bearing   *float32 `json:"bearing"`
	Timestamp int64    `json:"timestamp"`
}

// regionalDisruptions is the operator's disruption XML document
type regionalDisruptions struct {
	Disruptions []regionalDisruption `xml:"disruption"`
}

// regionalDisruption is one disruption notice
type regionalDisruption struct {
	Id     string `xml:"id,attr"`
	Route  string `xml:"route"`
	Title  string `xml:"title"`
	Detail string `xml:"detail"`
	From   string `xml:"from"`
	Until  string `xml:"until"`
}

// RegionalProvider matches the regional operator's position feed and carries
// its disruption notices into the published alerts
type RegionalProvider struct {
	log            *log.Logger
	client         *httpclient.Client
	store          *schedule.Store
	pipeline       pipeline
	positionsUrl   string
	disruptionsUrl string
	interval       time.Duration
}

// MakeRegionalProvider builds a RegionalProvider polling both feeds every interval
func MakeRegionalProvider(log *log.Logger,
	client *httpclient.Client,
	store *schedule.Store,
	positionsUrl string,
	disruptionsUrl string,
	interval time.Duration,
	scoreWorkers int) *RegionalProvider {
	return &RegionalProvider{
		log:            log,
		client:         client,
		store:          store,
		pipeline:       makePipeline(log, store.StopPositions, scoreWorkers),
		positionsUrl:   positionsUrl,
		disruptionsUrl: disruptionsUrl,
		interval:       interval,
	}
}

// Name implements matcher.Provider
func (p *RegionalProvider) Name() string {
	return "regional"
}

// Interval implements matcher.Provider
func (p *RegionalProvider) Interval() time.Duration {
	return p.interval
}

// Poll fetches positions and disruptions and matches every report against its
// route and direction. A disruption fetch failure drops only the alerts; the
// vehicles of the tick still publish.
func (p *RegionalProvider) Poll(now time.Time) ([]*feed.VehicleUpdate, []*feed.Alert, error) {
	var raw []regionalVehicle
	if err := p.client.GetJSON(p.positionsUrl, &raw); err != nil {
		return nil, nil, fmt.Errorf("fetching regional positions: %w", err)
	}

	reports := make([]report, 0, len(raw))
	for _, vehicle := range raw {
		if vehicle.Id == "" || vehicle.Route == "" {
			continue
		}
		timestamp := vehicle.Timestamp
		if timestamp == 0 {
			timestamp = now.Unix()
		}
		reports = append(reports, report{
			VehicleId: vehicle.Id,
			Longitude: vehicle.Longitude,
			Latitude:  vehicle.Latitude,
			Bearing:   vehicle.Bearing,
			Timestamp: timestamp,
			Specifier: vehicle.Route + "|" + strconv.Itoa(vehicle.Direction),
			RouteId:   vehicle.Route,
		})
	}
	p.log.Printf("loaded %d regional positions\n", len(reports))

	updates := p.pipeline.matchReports(now, p.Name(), reports,
		matching.CandidateSourceFunc(p.regionalCandidates))

	alerts := p.fetchAlerts()

	return updates, alerts, nil
}

// regionalCandidates resolves a route|direction specifier to a schedule query
func (p *RegionalProvider) regionalCandidates(serviceDay time.Time, startSeconds int, endSeconds int,
	specifier string) ([]matching.TripCandidate, error) {

	route, directionString, found := strings.Cut(specifier, "|")
	if !found {
		return nil, fmt.Errorf("malformed regional specifier %q", specifier)
	}
	direction, err := strconv.Atoi(directionString)
	if err != nil {
		return nil, fmt.Errorf("malformed regional direction in specifier %q: %w", specifier, err)
	}
	return p.store.CandidatesForLineDirection(serviceDay, startSeconds, endSeconds,
		route, direction)
}

// fetchAlerts pulls and converts the disruption document. Failures degrade to
// no alerts for the tick.
func (p *RegionalProvider) fetchAlerts() []*feed.Alert {
	var document regionalDisruptions
	if err := p.client.GetXML(p.disruptionsUrl, &document); err != nil {
		p.log.Printf("error fetching regional disruptions, publishing without alerts. error:%v\n", err)
		return nil
	}

	alerts := make([]*feed.Alert, 0, len(document.Disruptions))
	for _, disruption := range document.Disruptions {
		if disruption.Id == "" || disruption.Title == "" {
			continue
		}
		alert := &feed.Alert{
			AlertId:     p.Name() + "-" + disruption.Id,
			RouteId:     disruption.Route,
			Header:      disruption.Title,
			Description: disruption.Detail,
		}
		if from, err := time.Parse(time.RFC3339, disruption.From); err == nil {
			alert.Start = from.Unix()
		}
		if until, err := time.Parse(time.RFC3339, disruption.Until); err == nil {
			alert.End = until.Unix()
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

package providers

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"

	"github.com/transitlive/tripmatch/app/vehicle-matcher/feed"
	"github.com/transitlive/tripmatch/business/data/schedule"
	"github.com/transitlive/tripmatch/business/matching"
	"github.com/transitlive/tripmatch/foundation/httpclient"
)

// coachDeparture is one vehicle of the national coach operator's feed. The
// operator encodes direction as "inbound"/"outbound" and publishes separate
// weekday, saturday and sunday timetable profiles.
type coachDeparture struct {
	Vehicle    string  `json:"vehicle"`
	Line       string  `json:"line"`
	Heading    string  `json:"heading"`
	Longitude  float64 `json:"lng"`
	Latitude   float64 `json:"lat"`
	RecordedAt string  `json:"recorded_at"`
}

// CoachProvider matches the national coach operator's position feed
type CoachProvider struct {
	log      *log.Logger
	client   *httpclient.Client
	store    *schedule.Store
	pipeline pipeline
	url      string
	interval time.Duration
	holidays *cal.BusinessCalendar
}

// MakeCoachProvider builds a CoachProvider polling url every interval
// TODO:: the holiday calendar should be configurable per operator rather than hardcoded.
func MakeCoachProvider(log *log.Logger,
	client *httpclient.Client,
	store *schedule.Store,
	url string,
	interval time.Duration,
	scoreWorkers int) *CoachProvider {

	calendar := cal.NewBusinessCalendar()
	calendar.AddHoliday(
		us.NewYear,
		us.MemorialDay,
		us.IndependenceDay,
		us.LaborDay,
		us.ThanksgivingDay,
		us.ChristmasDay,
	)
	return &CoachProvider{
		log:      log,
		client:   client,
		store:    store,
		pipeline: makePipeline(log, store.StopPositions, scoreWorkers),
		url:      url,
		interval: interval,
		holidays: calendar,
	}
}

// Name implements matcher.Provider
func (p *CoachProvider) Name() string {
	return "coach"
}

// Interval implements matcher.Provider
func (p *CoachProvider) Interval() time.Duration {
	return p.interval
}

// Poll fetches the coach feed and matches every vehicle against its line and
// direction under the service day's timetable profile
func (p *CoachProvider) Poll(now time.Time) ([]*feed.VehicleUpdate, []*feed.Alert, error) {
	var raw []coachDeparture
	if err := p.client.GetJSON(p.url, &raw); err != nil {
		return nil, nil, fmt.Errorf("fetching coach positions: %w", err)
	}

	reports := make([]report, 0, len(raw))
	for _, vehicle := range raw {
		if vehicle.Vehicle == "" || vehicle.Line == "" {
			continue
		}
		timestamp := now.Unix()
		if recorded, err := time.Parse(time.RFC3339, vehicle.RecordedAt); err == nil {
			timestamp = recorded.Unix()
		}
		reports = append(reports, report{
			VehicleId: vehicle.Vehicle,
			Longitude: vehicle.Longitude,
			Latitude:  vehicle.Latitude,
			Timestamp: timestamp,
			Specifier: vehicle.Line + "|" + vehicle.Heading,
			RouteId:   vehicle.Line,
		})
	}
	p.log.Printf("loaded %d coach positions\n", len(reports))

	updates := p.pipeline.matchReports(now, p.Name(), reports,
		matching.CandidateSourceFunc(p.coachCandidates))
	return updates, nil, nil
}

// coachCandidates resolves a line|heading specifier to a profile aware
// schedule query. Heading "inbound" maps to direction 0 and "outbound" to 1;
// holidays run the sunday timetable.
func (p *CoachProvider) coachCandidates(serviceDay time.Time, startSeconds int, endSeconds int,
	specifier string) ([]matching.TripCandidate, error) {

	line, heading, found := strings.Cut(specifier, "|")
	if !found {
		return nil, fmt.Errorf("malformed coach specifier %q", specifier)
	}
	direction := 0
	if heading == "outbound" {
		direction = 1
	}

	return p.store.CandidatesForProfile(serviceDay, startSeconds, endSeconds,
		line, direction, p.serviceProfile(serviceDay))
}

// serviceProfile selects which timetable profile runs on serviceDay
func (p *CoachProvider) serviceProfile(serviceDay time.Time) string {
	_, observed, _ := p.holidays.IsHoliday(serviceDay)
	if observed {
		return "sunday"
	}
	switch serviceDay.Weekday() {
	case time.Saturday:
		return "saturday"
	case time.Sunday:
		return "sunday"
	default:
		return "weekday"
	}
}

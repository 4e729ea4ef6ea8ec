package providers

import (
	"encoding/xml"
	"errors"
	"log"
	"reflect"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/transitlive/tripmatch/business/matching"
)

type testLogWriter struct {
	logLines []string
	log      *log.Logger
}

func makeTestLogWriter() *testLogWriter {
	logWriter := testLogWriter{
		logLines: make([]string, 0),
	}
	logger := log.New(&logWriter, "MATCHER : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logWriter.log = logger
	return &logWriter
}

func (t *testLogWriter) Write(p []byte) (n int, err error) {
	t.logLines = append(t.logLines, string(p))
	return len(p), nil
}

// testStops serves the same two stop line for every route
func testStops(_ string) (map[string]matching.StopPosition, error) {
	return map[string]matching.StopPosition{
		"s1": {Longitude: -122.00, Latitude: 45.0},
		"s2": {Longitude: -122.01, Latitude: 45.0},
	}, nil
}

func testTripCandidate(tripId string, firstDeparture int, date time.Time) matching.TripCandidate {
	return matching.TripCandidate{
		TripId: tripId,
		Route:  []string{"s1", "s2"},
		Times:  []int{firstDeparture, firstDeparture + 600},
		Seqs:   []uint32{1, 2},
		Date:   date,
	}
}

func Test_groupBySpecifier(t *testing.T) {
	tests := []struct {
		name string
		give []report
		want []specifierGroup
	}{
		{
			name: "empty",
			give: nil,
			want: nil,
		},
		{
			name: "groups keep first appearance order",
			give: []report{
				{VehicleId: "a", Specifier: "12", RouteId: "12"},
				{VehicleId: "b", Specifier: "9", RouteId: "9"},
				{VehicleId: "c", Specifier: "12", RouteId: "12"},
			},
			want: []specifierGroup{
				{specifier: "12", routeId: "12", vehicles: []int{0, 2}},
				{specifier: "9", routeId: "9", vehicles: []int{1}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := groupBySpecifier(tt.give); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("groupBySpecifier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_matchReports(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	p := makePipeline(logWriter.log, testStops, 2)

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 4, 10, 5, 0, 0, time.UTC)

	// two candidates twenty minutes apart: both vehicles sit mid segment at
	// 10:05, so both prefer the 10:00 trip, and the conflict pushes the
	// second vehicle onto the 10:20 trip
	source := matching.CandidateSourceFunc(
		func(serviceDay time.Time, startSeconds int, endSeconds int, specifier string) ([]matching.TripCandidate, error) {
			return []matching.TripCandidate{
				testTripCandidate("t1", 36000, day),
				testTripCandidate("t2", 37200, day),
			}, nil
		})

	reports := []report{
		{VehicleId: "100", Longitude: -122.005, Latitude: 45.0, Timestamp: 1772000700, Specifier: "12", RouteId: "12"},
		{VehicleId: "101", Longitude: -122.005, Latitude: 45.0, Timestamp: 1772000710, Specifier: "12", RouteId: "12"},
	}

	updates := p.matchReports(now, "tram", reports, source)
	is.Equal(2, len(updates))

	first := updates[0]
	is.Equal("tram-100-t1", first.EntityId)
	is.Equal("t1", first.TripId)
	is.Equal("12", first.RouteId)
	is.Equal("10:00:00", first.StartTime)
	is.Equal("20260304", first.StartDate)
	is.Equal(uint32(2), first.StopSequence)
	is.Equal("s2", first.StopId)
	is.Equal(int64(1772000700), first.Timestamp)

	second := updates[1]
	is.Equal("tram-101-t2", second.EntityId)
	is.Equal("t2", second.TripId)
	is.Equal("10:20:00", second.StartTime)
}

func Test_matchReports_failedSpecifierSkipsOnlyItsVehicles(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	p := makePipeline(logWriter.log, testStops, 2)

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 4, 10, 5, 0, 0, time.UTC)

	source := matching.CandidateSourceFunc(
		func(serviceDay time.Time, startSeconds int, endSeconds int, specifier string) ([]matching.TripCandidate, error) {
			if specifier == "9" {
				return nil, errors.New("store unavailable")
			}
			return []matching.TripCandidate{testTripCandidate("t1", 36000, day)}, nil
		})

	reports := []report{
		{VehicleId: "200", Longitude: -122.005, Latitude: 45.0, Timestamp: 1772000700, Specifier: "9", RouteId: "9"},
		{VehicleId: "100", Longitude: -122.005, Latitude: 45.0, Timestamp: 1772000700, Specifier: "12", RouteId: "12"},
	}

	updates := p.matchReports(now, "tram", reports, source)
	is.Equal(1, len(updates))
	is.Equal("tram-100-t1", updates[0].EntityId)
	is.True(len(logWriter.logLines) > 0)
}

func Test_matchReports_noCandidates(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	p := makePipeline(logWriter.log, testStops, 2)

	now := time.Date(2026, 3, 4, 10, 5, 0, 0, time.UTC)
	source := matching.CandidateSourceFunc(
		func(serviceDay time.Time, startSeconds int, endSeconds int, specifier string) ([]matching.TripCandidate, error) {
			return nil, nil
		})

	reports := []report{
		{VehicleId: "100", Longitude: -122.005, Latitude: 45.0, Timestamp: 1772000700, Specifier: "12", RouteId: "12"},
	}

	updates := p.matchReports(now, "tram", reports, source)
	is.Equal(0, len(updates))
}

func Test_synthesizeUpdate_clampsStopIndex(t *testing.T) {
	is := is.New(t)
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	candidate := testTripCandidate("t1", 36000, day)
	r := report{VehicleId: "100", Longitude: -122.01, Latitude: 45.0, Timestamp: 1772000700, RouteId: "12"}

	update := synthesizeUpdate("tram", &r, &candidate, matching.TripInfo{Candidate: 0, Diff: 0, StopIndex: 5})
	is.Equal(uint32(2), update.StopSequence)
	is.Equal("s2", update.StopId)
}

func TestCoachProvider_serviceProfile(t *testing.T) {
	logWriter := makeTestLogWriter()
	provider := MakeCoachProvider(logWriter.log, nil, nil, "", time.Minute, 1)

	tests := []struct {
		name       string
		serviceDay time.Time
		want       string
	}{
		{
			name:       "weekday",
			serviceDay: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
			want:       "weekday",
		},
		{
			name:       "saturday",
			serviceDay: time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
			want:       "saturday",
		},
		{
			name:       "sunday",
			serviceDay: time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
			want:       "sunday",
		},
		{
			name:       "holiday on a weekday runs the sunday timetable",
			serviceDay: time.Date(2026, 7, 3, 0, 0, 0, 0, time.UTC), // observed Independence Day
			want:       "sunday",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := provider.serviceProfile(tt.serviceDay); got != tt.want {
				t.Errorf("serviceProfile() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoachProvider_coachCandidates_malformedSpecifier(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	provider := MakeCoachProvider(logWriter.log, nil, nil, "", time.Minute, 1)

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	_, err := provider.coachCandidates(day, 36000, 43200, "no-separator")
	is.True(err != nil)
}

func TestRegionalProvider_regionalCandidates_malformedSpecifier(t *testing.T) {
	is := is.New(t)
	logWriter := makeTestLogWriter()
	provider := MakeRegionalProvider(logWriter.log, nil, nil, "", "", time.Minute, 1)

	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	_, err := provider.regionalCandidates(day, 36000, 43200, "no-separator")
	is.True(err != nil)

	_, err = provider.regionalCandidates(day, 36000, 43200, "R40|north")
	is.True(err != nil)
}

func Test_regionalDisruptionsUnmarshal(t *testing.T) {
	is := is.New(t)
	document := `<disruptions>
  <disruption id="d1">
    <route>R40</route>
    <title>detour</title>
    <detail>bridge work</detail>
    <from>2026-03-04T06:00:00Z</from>
    <until>2026-03-06T20:00:00Z</until>
  </disruption>
  <disruption id="d2">
    <route>R41</route>
    <title>station closed</title>
  </disruption>
</disruptions>`

	var parsed regionalDisruptions
	err := xml.Unmarshal([]byte(document), &parsed)
	is.NoErr(err)
	is.Equal(2, len(parsed.Disruptions))
	is.Equal("d1", parsed.Disruptions[0].Id)
	is.Equal("R40", parsed.Disruptions[0].Route)
	is.Equal("detour", parsed.Disruptions[0].Title)
	is.Equal("bridge work", parsed.Disruptions[0].Detail)
	is.Equal("2026-03-04T06:00:00Z", parsed.Disruptions[0].From)
	is.Equal("d2", parsed.Disruptions[1].Id)
	is.Equal("", parsed.Disruptions[1].Detail)
}

package matching

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/matryer/is"
)

// recordedQuery is one CandidatesBetween call captured by recordingSource
type recordedQuery struct {
	serviceDay   time.Time
	startSeconds int
	endSeconds   int
	specifier    string
}

// recordingSource records every query and returns canned candidates keyed by
// service day
type recordingSource struct {
	queries   []recordedQuery
	responses map[string][]TripCandidate
	err       error
}

func (s *recordingSource) CandidatesBetween(serviceDay time.Time, startSeconds int, endSeconds int,
	specifier string) ([]TripCandidate, error) {
	s.queries = append(s.queries, recordedQuery{
		serviceDay:   serviceDay,
		startSeconds: startSeconds,
		endSeconds:   endSeconds,
		specifier:    specifier,
	})
	if s.err != nil {
		return nil, s.err
	}
	return s.responses[ServiceDateString(serviceDay)], nil
}

func makeScorableCandidate(tripId string, date time.Time) TripCandidate {
	return TripCandidate{
		TripId: tripId,
		Route:  []string{"a", "b"},
		Times:  []int{36000, 36600},
		Seqs:   []uint32{1, 2},
		Date:   date,
	}
}

func TestGetTripCandidates_windows(t *testing.T) {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	previousDay := day.AddDate(0, 0, -1)
	nextDay := day.AddDate(0, 0, 1)

	tests := []struct {
		name        string
		now         time.Time
		wantQueries []recordedQuery
	}{
		{
			name: "window inside one service day",
			now:  time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC),
			wantQueries: []recordedQuery{
				{serviceDay: day, startSeconds: 39600, endSeconds: 46800, specifier: "12"},
			},
		},
		{
			name: "window crosses midnight backward",
			now:  time.Date(2026, 3, 4, 0, 30, 0, 0, time.UTC),
			wantQueries: []recordedQuery{
				{serviceDay: previousDay, startSeconds: 84600, endSeconds: 91800, specifier: "12"},
				{serviceDay: day, startSeconds: 0, endSeconds: 5400, specifier: "12"},
			},
		},
		{
			name: "window crosses midnight forward",
			now:  time.Date(2026, 3, 4, 23, 45, 0, 0, time.UTC),
			wantQueries: []recordedQuery{
				{serviceDay: day, startSeconds: 81900, endSeconds: 92700, specifier: "12"},
				{serviceDay: nextDay, startSeconds: -4500, endSeconds: 2700, specifier: "12"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is := is.New(t)
			source := &recordingSource{
				responses: map[string][]TripCandidate{},
			}
			for _, query := range tt.wantQueries {
				source.responses[ServiceDateString(query.serviceDay)] = []TripCandidate{
					makeScorableCandidate("trip-"+ServiceDateString(query.serviceDay), query.serviceDay),
				}
			}

			candidates, err := GetTripCandidates(tt.now, "12", source)
			is.NoErr(err)
			is.Equal(len(tt.wantQueries), len(source.queries))
			for i, want := range tt.wantQueries {
				got := source.queries[i]
				is.Equal(want.serviceDay, got.serviceDay)
				is.Equal(want.startSeconds, got.startSeconds)
				is.Equal(want.endSeconds, got.endSeconds)
				is.Equal(want.specifier, got.specifier)
			}
			// one canned candidate per queried service day survives the filter
			is.Equal(len(tt.wantQueries), len(candidates))
		})
	}
}

func TestGetTripCandidates_filtersUnscorable(t *testing.T) {
	is := is.New(t)
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	source := &recordingSource{
		responses: map[string][]TripCandidate{
			ServiceDateString(day): {
				makeScorableCandidate("good", day),
				{
					// single stop can never form a segment
					TripId: "short",
					Route:  []string{"a"},
					Times:  []int{36000},
					Seqs:   []uint32{1},
					Date:   day,
				},
				{
					// misaligned times
					TripId: "ragged",
					Route:  []string{"a", "b"},
					Times:  []int{36000},
					Seqs:   []uint32{1, 2},
					Date:   day,
				},
			},
		},
	}

	candidates, err := GetTripCandidates(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), "12", source)
	is.NoErr(err)
	is.Equal(1, len(candidates))
	is.Equal("good", candidates[0].TripId)
}

func TestGetTripCandidates_sourceError(t *testing.T) {
	is := is.New(t)
	source := &recordingSource{
		err: errors.New("store unavailable"),
	}
	candidates, err := GetTripCandidates(time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC), "12", source)
	is.True(err != nil)
	is.Equal(0, len(candidates))
}

func Test_filterScorable(t *testing.T) {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		give []TripCandidate
		want int
	}{
		{give: nil, want: 0},
		{give: []TripCandidate{makeScorableCandidate("one", day)}, want: 1},
		{
			give: []TripCandidate{
				makeScorableCandidate("one", day),
				{TripId: "empty", Date: day},
			},
			want: 1,
		},
	}
	for row, tt := range tests {
		t.Run("row: "+strconv.Itoa(row), func(t *testing.T) {
			if got := filterScorable(tt.give); len(got) != tt.want {
				t.Errorf("filterScorable() returned %d candidates, want %d", len(got), tt.want)
			}
		})
	}
}

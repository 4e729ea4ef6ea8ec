package matching

import (
	"reflect"
	"testing"
	"time"

	"github.com/matryer/is"
)

func assignTestCandidates() []TripCandidate {
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	trips := []string{"t1", "t2", "t3"}
	candidates := make([]TripCandidate, 0, len(trips))
	for _, tripId := range trips {
		candidates = append(candidates, TripCandidate{
			TripId: tripId,
			Route:  []string{"a", "b"},
			Times:  []int{36000, 36600},
			Seqs:   []uint32{1, 2},
			Date:   day,
		})
	}
	return candidates
}

func TestAssignTrips(t *testing.T) {
	tests := []struct {
		name  string
		lists func() []*TripCandidateList
		want  map[int]TripInfo
	}{
		{
			name: "single vehicle single candidate",
			lists: func() []*TripCandidateList {
				return []*TripCandidateList{
					{Vehicle: 0, Cands: []TripInfo{{Candidate: 0, Diff: 42, StopIndex: 1}}},
				}
			},
			want: map[int]TripInfo{
				0: {Candidate: 0, Diff: 42, StopIndex: 1},
			},
		},
		{
			name: "losing vehicle falls back to its next best trip",
			lists: func() []*TripCandidateList {
				// both vehicles prefer t1; vehicle 0 holds the better claim,
				// so vehicle 1 falls back to t2 even though its t1 score was
				// better than its t2 score
				return []*TripCandidateList{
					{Vehicle: 0, Cands: []TripInfo{
						{Candidate: 0, Diff: 50, StopIndex: 1},
						{Candidate: 1, Diff: 80, StopIndex: 1},
					}},
					{Vehicle: 1, Cands: []TripInfo{
						{Candidate: 0, Diff: 60, StopIndex: 1},
						{Candidate: 1, Diff: 90, StopIndex: 1},
					}},
				}
			},
			want: map[int]TripInfo{
				0: {Candidate: 0, Diff: 50, StopIndex: 1},
				1: {Candidate: 1, Diff: 90, StopIndex: 1},
			},
		},
		{
			name: "vehicle with no remaining trips gets no assignment",
			lists: func() []*TripCandidateList {
				return []*TripCandidateList{
					{Vehicle: 0, Cands: []TripInfo{{Candidate: 0, Diff: 10, StopIndex: 1}}},
					{Vehicle: 1, Cands: []TripInfo{{Candidate: 0, Diff: 20, StopIndex: 1}}},
				}
			},
			want: map[int]TripInfo{
				0: {Candidate: 0, Diff: 10, StopIndex: 1},
			},
		},
		{
			name: "equal diffs resolve to the lowest vehicle then candidate",
			lists: func() []*TripCandidateList {
				return []*TripCandidateList{
					{Vehicle: 1, Cands: []TripInfo{{Candidate: 1, Diff: 30, StopIndex: 1}}},
					{Vehicle: 0, Cands: []TripInfo{
						{Candidate: 1, Diff: 30, StopIndex: 1},
						{Candidate: 0, Diff: 30, StopIndex: 1},
					}},
				}
			},
			want: map[int]TripInfo{
				// vehicle 0 wins the tie and its own tie picks candidate 0,
				// which leaves t2 free for vehicle 1
				0: {Candidate: 0, Diff: 30, StopIndex: 1},
				1: {Candidate: 1, Diff: 30, StopIndex: 1},
			},
		},
		{
			name: "empty input",
			lists: func() []*TripCandidateList {
				return nil
			},
			want: map[int]TripInfo{},
		},
		{
			name: "nil and empty lists are skipped",
			lists: func() []*TripCandidateList {
				return []*TripCandidateList{
					nil,
					{Vehicle: 5, Cands: nil},
					{Vehicle: 2, Cands: []TripInfo{{Candidate: 2, Diff: 11, StopIndex: 1}}},
				}
			},
			want: map[int]TripInfo{
				2: {Candidate: 2, Diff: 11, StopIndex: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssignTrips(tt.lists(), assignTestCandidates())
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AssignTrips() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssignTrips_uniquenessIsOnTripId(t *testing.T) {
	is := is.New(t)
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	// candidates 0 and 2 are the same trip retrieved twice, as happens when a
	// midnight window queries two service days
	candidates := []TripCandidate{
		{TripId: "t1", Route: []string{"a", "b"}, Times: []int{36000, 36600}, Seqs: []uint32{1, 2}, Date: day},
		{TripId: "t2", Route: []string{"a", "b"}, Times: []int{36000, 36600}, Seqs: []uint32{1, 2}, Date: day},
		{TripId: "t1", Route: []string{"a", "b"}, Times: []int{36000, 36600}, Seqs: []uint32{1, 2}, Date: day},
	}
	lists := []*TripCandidateList{
		{Vehicle: 0, Cands: []TripInfo{{Candidate: 0, Diff: 10, StopIndex: 1}}},
		{Vehicle: 1, Cands: []TripInfo{
			{Candidate: 2, Diff: 20, StopIndex: 1},
			{Candidate: 1, Diff: 40, StopIndex: 1},
		}},
	}

	got := AssignTrips(lists, candidates)
	is.Equal(2, len(got))
	is.Equal("t1", candidates[got[0].Candidate].TripId)
	// vehicle 1 cannot take the duplicate entry for t1
	is.Equal("t2", candidates[got[1].Candidate].TripId)
}

func Test_bestForVehicle(t *testing.T) {
	tests := []struct {
		name string
		list *TripCandidateList
		want TripInfo
	}{
		{
			name: "lowest diff wins",
			list: &TripCandidateList{Vehicle: 0, Cands: []TripInfo{
				{Candidate: 0, Diff: 30},
				{Candidate: 1, Diff: 10},
				{Candidate: 2, Diff: 20},
			}},
			want: TripInfo{Candidate: 1, Diff: 10},
		},
		{
			name: "equal diff prefers the lower candidate index",
			list: &TripCandidateList{Vehicle: 0, Cands: []TripInfo{
				{Candidate: 2, Diff: 10},
				{Candidate: 1, Diff: 10},
			}},
			want: TripInfo{Candidate: 1, Diff: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestForVehicle(tt.list); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("bestForVehicle() = %v, want %v", got, tt.want)
			}
		})
	}
}

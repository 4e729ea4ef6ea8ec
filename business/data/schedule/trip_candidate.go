package schedule

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/transitlive/tripmatch/business/matching"
)

// candidateRow is one scheduled_stop_time row belonging to a candidate trip
type candidateRow struct {
	TripId        string `db:"trip_id"`
	Direction     *int   `db:"direction"`
	StopId        string `db:"stop_id"`
	DepartureTime int    `db:"departure_time"`
	StopSequence  uint32 `db:"stop_sequence"`
}

// candidateSelect lists the row columns every candidate query returns
const candidateSelect = "select trip_id, direction, stop_id, departure_time, stop_sequence " +
	"from scheduled_stop_time "

// candidateWindowClause keeps trips whose scheduled span overlaps the
// requested day-relative window
const candidateWindowClause = "and trip_id in ( " +
	"select trip_id from scheduled_stop_time " +
	"where service_date = :service_date %s " +
	"group by trip_id " +
	"having min(departure_time) <= :end_seconds and max(departure_time) >= :start_seconds) " +
	"order by trip_id, stop_sequence"

// CandidatesForLine retrieves candidate trips on lineId active in the window,
// for providers without a direction encoding.
func (s *Store) CandidatesForLine(serviceDay time.Time, startSeconds int, endSeconds int,
	lineId string) ([]matching.TripCandidate, error) {

	statementString := candidateSelect +
		"where service_date = :service_date and line_id = :line_id " +
		fmt.Sprintf(candidateWindowClause, "and line_id = :line_id")

	return s.queryCandidates(statementString, map[string]interface{}{
		"service_date":  serviceDay,
		"line_id":       lineId,
		"start_seconds": startSeconds,
		"end_seconds":   endSeconds,
	}, serviceDay)
}

// CandidatesForLineDirection retrieves candidate trips on lineId running in
// direction, for providers that encode a direction axis.
func (s *Store) CandidatesForLineDirection(serviceDay time.Time, startSeconds int, endSeconds int,
	lineId string, direction int) ([]matching.TripCandidate, error) {

	statementString := candidateSelect +
		"where service_date = :service_date and line_id = :line_id and direction = :direction " +
		fmt.Sprintf(candidateWindowClause, "and line_id = :line_id and direction = :direction")

	return s.queryCandidates(statementString, map[string]interface{}{
		"service_date":  serviceDay,
		"line_id":       lineId,
		"direction":     direction,
		"start_seconds": startSeconds,
		"end_seconds":   endSeconds,
	}, serviceDay)
}

// CandidatesForPattern retrieves candidate trips on a stop pattern. Patterns
// already imply a direction, so no direction filter applies.
func (s *Store) CandidatesForPattern(serviceDay time.Time, startSeconds int, endSeconds int,
	patternId string) ([]matching.TripCandidate, error) {

	statementString := candidateSelect +
		"where service_date = :service_date and pattern_id = :pattern_id " +
		fmt.Sprintf(candidateWindowClause, "and pattern_id = :pattern_id")

	return s.queryCandidates(statementString, map[string]interface{}{
		"service_date":  serviceDay,
		"pattern_id":    patternId,
		"start_seconds": startSeconds,
		"end_seconds":   endSeconds,
	}, serviceDay)
}

// CandidatesForProfile retrieves candidate trips on lineId under a named
// service profile such as "weekday" or "sunday". Operators that run a reduced
// holiday service publish the holiday timetable under its profile name.
func (s *Store) CandidatesForProfile(serviceDay time.Time, startSeconds int, endSeconds int,
	lineId string, direction int, profile string) ([]matching.TripCandidate, error) {

	statementString := candidateSelect +
		"where service_date = :service_date and line_id = :line_id " +
		"and direction = :direction and service_profile = :service_profile " +
		fmt.Sprintf(candidateWindowClause,
			"and line_id = :line_id and direction = :direction and service_profile = :service_profile")

	return s.queryCandidates(statementString, map[string]interface{}{
		"service_date":    serviceDay,
		"line_id":         lineId,
		"direction":       direction,
		"service_profile": profile,
		"start_seconds":   startSeconds,
		"end_seconds":     endSeconds,
	}, serviceDay)
}

// queryCandidates runs a candidate row query and folds the ordered rows into
// TripCandidates
func (s *Store) queryCandidates(statementString string, args map[string]interface{},
	serviceDay time.Time) ([]matching.TripCandidate, error) {

	var candidates []matching.TripCandidate

	err := s.selectWithRetry(statementString, args, func(rows *sqlx.Rows) error {
		candidates = candidates[:0]
		var current *matching.TripCandidate
		for rows.Next() {
			row := candidateRow{}
			if err := rows.StructScan(&row); err != nil {
				return err
			}

			// rows arrive ordered by trip_id then stop_sequence; a new trip_id
			// starts the next candidate
			if current == nil || current.TripId != row.TripId {
				candidates = append(candidates, matching.TripCandidate{
					TripId:    row.TripId,
					Direction: row.Direction,
					Date:      serviceDay,
				})
				current = &candidates[len(candidates)-1]
			}
			current.Route = append(current.Route, row.StopId)
			current.Times = append(current.Times, row.DepartureTime)
			current.Seqs = append(current.Seqs, row.StopSequence)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve trip candidates: %w", err)
	}
	return candidates, nil
}

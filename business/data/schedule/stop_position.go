package schedule

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/transitlive/tripmatch/business/matching"
)

// stopPositionRow is one route_stop row
type stopPositionRow struct {
	StopId    string  `db:"stop_id"`
	Longitude float64 `db:"longitude"`
	Latitude  float64 `db:"latitude"`
}

// StopPositions retrieves the stop coordinate lookup for every stop served by
// routeId. Stops missing from the store are simply absent from the map; the
// scorer degrades those to the zero coordinate.
func (s *Store) StopPositions(routeId string) (map[string]matching.StopPosition, error) {
	statementString := "select stop_id, longitude, latitude from route_stop " +
		"where route_id = :route_id"

	results := make(map[string]matching.StopPosition)
	err := s.selectWithRetry(statementString, map[string]interface{}{
		"route_id": routeId,
	}, func(rows *sqlx.Rows) error {
		for rows.Next() {
			row := stopPositionRow{}
			if err := rows.StructScan(&row); err != nil {
				return err
			}
			results[row.StopId] = matching.StopPosition{
				Longitude: row.Longitude,
				Latitude:  row.Latitude,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve stop positions for route %s: %w", routeId, err)
	}
	return results, nil
}

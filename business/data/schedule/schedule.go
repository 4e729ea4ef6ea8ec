// Package schedule provides read access to the pre-built schedule store.
// It answers the two query shapes the matching engine needs: candidate trips
// for a specifier active in a day-relative time window, and stop coordinates
// for a route.
package schedule

import (
	"log"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/transitlive/tripmatch/foundation/database"
)

// Store wraps the schedule database. All provider loops share one Store and
// its bounded connection pool; queries retry with jitter under pool pressure
// instead of failing the tick.
type Store struct {
	db            *sqlx.DB
	log           *log.Logger
	queryDeadline time.Duration
}

// MakeStore builds a Store around db. queryDeadline bounds how long a single
// query keeps retrying before its tick is treated as degraded.
func MakeStore(log *log.Logger, db *sqlx.DB, queryDeadline time.Duration) *Store {
	return &Store{
		db:            db,
		log:           log,
		queryDeadline: queryDeadline,
	}
}

// selectWithRetry runs a named sqlx query through the jittered retry wrapper,
// handing rows to collect on success.
func (s *Store) selectWithRetry(statementString string, args map[string]interface{},
	collect func(rows *sqlx.Rows) error) error {

	return database.ExecuteWithRetry(func() error {
		rows, err := database.PrepareNamedQueryRowsFromMap(statementString, s.db, args)
		if err != nil {
			return err
		}
		defer func() {
			_ = rows.Close()
		}()
		if err = collect(rows); err != nil {
			return err
		}
		return rows.Err()
	}, s.queryDeadline)
}

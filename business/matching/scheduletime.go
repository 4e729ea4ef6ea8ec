package matching

import (
	"fmt"
	"time"
)

// getDLSTransitionSeconds provides the number of seconds offset for a 12am date later in the day after day light saving time is done
func getDLSTransitionSeconds(timeAt12 time.Time) int {
	before := time.Date(timeAt12.Year(), timeAt12.Month(), timeAt12.Day(), 0, 0, 0, 0, timeAt12.Location())
	after := time.Date(timeAt12.Year(), timeAt12.Month(), timeAt12.Day(), 5, 0, 0, 0, timeAt12.Location())
	_, beforeOffset := before.Zone()
	_, afterOffset := after.Zone()
	return afterOffset - beforeOffset
}

// MakeScheduleTime produces a time from by adding seconds to a 12am date. Takes into account day light saving time
func MakeScheduleTime(timeAt12 time.Time, scheduleSeconds int) time.Time {
	offset := getDLSTransitionSeconds(timeAt12)
	scheduleSeconds = scheduleSeconds + (0 - offset)
	return timeAt12.Add(time.Duration(scheduleSeconds) * time.Second)
}

// makeScheduleTimeFraction is MakeScheduleTime for fractional schedule seconds,
// used when interpolating between two scheduled departures.
func makeScheduleTimeFraction(timeAt12 time.Time, scheduleSeconds float64) time.Time {
	offset := getDLSTransitionSeconds(timeAt12)
	scheduleSeconds = scheduleSeconds - float64(offset)
	return timeAt12.Add(time.Duration(scheduleSeconds * float64(time.Second)))
}

// Get12AmTime returns the service day 12am date for date
func Get12AmTime(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
}

// SecondsIntoServiceDay returns the day-relative schedule seconds of at against
// the service day beginning at serviceDay. Results may be negative or exceed
// 86400 when at falls outside the service day.
func SecondsIntoServiceDay(at time.Time, serviceDay time.Time) int {
	return int(at.Unix() - serviceDay.Unix())
}

// ScheduleTimeString formats day-relative schedule seconds as HH:MM:SS.
// Hours are not wrapped at 24, matching gtfs conventions for trips that
// continue past midnight.
func ScheduleTimeString(scheduleSeconds int) string {
	if scheduleSeconds < 0 {
		scheduleSeconds = 0
	}
	h := scheduleSeconds / 3600
	m := (scheduleSeconds % 3600) / 60
	s := scheduleSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ServiceDateString formats a service day as YYYYMMDD
func ServiceDateString(serviceDay time.Time) string {
	return serviceDay.Format("20060102")
}

// Package feed aggregates per-source matching results and republishes them as
// a unified gtfs-realtime vehicle position and alert feed.
package feed

import (
	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// VehicleUpdate is the canonical vehicle position record synthesized by a
// provider adapter after assignment. Field semantics follow the gtfs-realtime
// VehiclePosition entity so the merged feed stays consumable by gtfs-rt
// tooling.
type VehicleUpdate struct {
	// EntityId is a stable feed entity id, a provider+vehicle+trip composite
	EntityId string `json:"entity_id"`
	TripId   string `json:"trip_id"`
	RouteId  string `json:"route_id,omitempty"`
	// StartTime is the trip's scheduled start as HH:MM:SS, hours past 24 for
	// post-midnight trips
	StartTime string `json:"start_time"`
	// StartDate is the trip's service date as YYYYMMDD
	StartDate string   `json:"start_date"`
	Latitude  float32  `json:"latitude"`
	Longitude float32  `json:"longitude"`
	Bearing   *float32 `json:"bearing,omitempty"`
	// StopSequence is the schedule sequence of the stop the vehicle is in
	// transit to, clamped to the trip's final stop sequence
	StopSequence uint32 `json:"stop_sequence"`
	StopId       string `json:"stop_id"`
	// Timestamp is the unix seconds of the source report, not of the matching
	Timestamp int64 `json:"timestamp"`
}

// Alert is a service disruption parsed from a provider's alert feed
type Alert struct {
	AlertId     string `json:"alert_id"`
	RouteId     string `json:"route_id,omitempty"`
	Header      string `json:"header"`
	Description string `json:"description,omitempty"`
	// Start and End bound the active period in unix seconds, zero when open
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// feedEntity converts the update to its gtfs-realtime entity
func (u *VehicleUpdate) feedEntity() *gtfsrt.FeedEntity {
	position := &gtfsrt.Position{
		Latitude:  proto.Float32(u.Latitude),
		Longitude: proto.Float32(u.Longitude),
	}
	if u.Bearing != nil {
		position.Bearing = proto.Float32(*u.Bearing)
	}
	vehicle := &gtfsrt.VehiclePosition{
		Trip: &gtfsrt.TripDescriptor{
			TripId:               proto.String(u.TripId),
			StartTime:            proto.String(u.StartTime),
			StartDate:            proto.String(u.StartDate),
			ScheduleRelationship: gtfsrt.TripDescriptor_SCHEDULED.Enum(),
		},
		Position:            position,
		CurrentStopSequence: proto.Uint32(u.StopSequence),
		StopId:              proto.String(u.StopId),
		CurrentStatus:       gtfsrt.VehiclePosition_IN_TRANSIT_TO.Enum(),
		Timestamp:           proto.Uint64(uint64(u.Timestamp)),
	}
	if u.RouteId != "" {
		vehicle.Trip.RouteId = proto.String(u.RouteId)
	}
	return &gtfsrt.FeedEntity{
		Id:      proto.String(u.EntityId),
		Vehicle: vehicle,
	}
}

// feedEntity converts the alert to its gtfs-realtime entity
func (a *Alert) feedEntity() *gtfsrt.FeedEntity {
	alert := &gtfsrt.Alert{
		HeaderText: translatedString(a.Header),
	}
	if a.Description != "" {
		alert.DescriptionText = translatedString(a.Description)
	}
	if a.RouteId != "" {
		alert.InformedEntity = []*gtfsrt.EntitySelector{
			{RouteId: proto.String(a.RouteId)},
		}
	}
	if a.Start != 0 || a.End != 0 {
		period := &gtfsrt.TimeRange{}
		if a.Start != 0 {
			period.Start = proto.Uint64(uint64(a.Start))
		}
		if a.End != 0 {
			period.End = proto.Uint64(uint64(a.End))
		}
		alert.ActivePeriod = []*gtfsrt.TimeRange{period}
	}
	return &gtfsrt.FeedEntity{
		Id:    proto.String(a.AlertId),
		Alert: alert,
	}
}

func translatedString(text string) *gtfsrt.TranslatedString {
	return &gtfsrt.TranslatedString{
		Translation: []*gtfsrt.TranslatedString_Translation{
			{Text: proto.String(text)},
		},
	}
}

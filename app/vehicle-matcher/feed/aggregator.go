package feed

import (
	"log"
	"sort"
	"sync"
	"time"

	gtfsrt "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/nats-io/nats.go"
	"google.golang.org/protobuf/proto"
)

// Aggregator holds the latest tick result of every source and republishes the
// merged feed whenever any source updates. Sources only ever send immutable
// tick results; they never touch the shared state directly.
type Aggregator struct {
	log             *log.Logger
	natsConnection  *nats.Conn
	publishOverNats bool
	subject         string

	mu      sync.RWMutex
	sources map[string]*sourceSnapshot
}

// sourceSnapshot is the last published tick of one source
type sourceSnapshot struct {
	vehicles  []*VehicleUpdate
	alerts    []*Alert
	updatedAt time.Time
}

// SourceStatus summarises one source's snapshot for diagnostics
type SourceStatus struct {
	Source       string    `json:"source"`
	VehicleCount int       `json:"vehicle_count"`
	AlertCount   int       `json:"alert_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MakeAggregator creates an Aggregator. natsConnection may be nil when
// publishOverNats is false.
func MakeAggregator(log *log.Logger, natsConnection *nats.Conn, subject string,
	publishOverNats bool) *Aggregator {
	return &Aggregator{
		log:             log,
		natsConnection:  natsConnection,
		publishOverNats: publishOverNats,
		subject:         subject,
		sources:         make(map[string]*sourceSnapshot),
	}
}

// Publish replaces source's snapshot with this tick's results, last write
// wins, and republishes the merged feed. An empty tick is published exactly
// like a populated one; a degraded source clears only its own snapshot.
func (a *Aggregator) Publish(source string, vehicles []*VehicleUpdate, alerts []*Alert) {
	a.mu.Lock()
	a.sources[source] = &sourceSnapshot{
		vehicles:  vehicles,
		alerts:    alerts,
		updatedAt: time.Now(),
	}
	a.mu.Unlock()

	a.log.Printf("published tick for source %s: %d vehicles, %d alerts\n",
		source, len(vehicles), len(alerts))

	if a.publishOverNats {
		a.sendOverNats()
	}
}

// Snapshot returns source's current vehicles and alerts, or nils when the
// source has never published.
func (a *Aggregator) Snapshot(source string) ([]*VehicleUpdate, []*Alert) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	snapshot, present := a.sources[source]
	if !present {
		return nil, nil
	}
	return snapshot.vehicles, snapshot.alerts
}

// SourceStatuses lists every source's snapshot summary ordered by source name
func (a *Aggregator) SourceStatuses() []SourceStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	results := make([]SourceStatus, 0, len(a.sources))
	for source, snapshot := range a.sources {
		results = append(results, SourceStatus{
			Source:       source,
			VehicleCount: len(snapshot.vehicles),
			AlertCount:   len(snapshot.alerts),
			UpdatedAt:    snapshot.updatedAt,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Source < results[j].Source
	})
	return results
}

// BuildFeedMessage merges every source snapshot into one gtfs-realtime
// FeedMessage timestamped at now. Sources are walked in name order so the
// entity order is stable between builds.
func (a *Aggregator) BuildFeedMessage(now time.Time) *gtfsrt.FeedMessage {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.sources))
	for source := range a.sources {
		names = append(names, source)
	}
	sort.Strings(names)

	message := &gtfsrt.FeedMessage{
		Header: &gtfsrt.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Incrementality:      gtfsrt.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
	}
	for _, source := range names {
		snapshot := a.sources[source]
		for _, vehicle := range snapshot.vehicles {
			message.Entity = append(message.Entity, vehicle.feedEntity())
		}
		for _, alert := range snapshot.alerts {
			message.Entity = append(message.Entity, alert.feedEntity())
		}
	}
	return message
}

// sendOverNats publishes the merged feed message over NATS
func (a *Aggregator) sendOverNats() {
	message := a.BuildFeedMessage(time.Now())
	data, err := proto.Marshal(message)
	if err != nil {
		a.log.Printf("failed to marshal feed message in Aggregator.sendOverNats, error:%v", err)
		return
	}
	err = a.natsConnection.Publish(a.subject, data)
	if err != nil {
		a.log.Printf("failed to send feed message in Aggregator.sendOverNats, error:%v", err)
	}
}

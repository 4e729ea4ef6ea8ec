// Package matcher runs each provider's fetch, match and publish cycle on its
// own polling loop.
package matcher

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/transitlive/tripmatch/app/vehicle-matcher/feed"
	"github.com/transitlive/tripmatch/foundation/database"
)

// Provider is one transit data source. Poll performs a full tick: fetch the
// raw feed, match vehicles to scheduled trips, and return the canonical
// vehicle and alert records for publication.
//
// Poll owns its own network timeout. A Poll error means the tick produced
// nothing useful; the loop publishes an empty tick for the source and tries
// again on the next interval.
type Provider interface {
	Name() string
	Interval() time.Duration
	Poll(now time.Time) ([]*feed.VehicleUpdate, []*feed.Alert, error)
}

// RunProviderLoop polls provider on its fixed interval until shutdownSignal,
// publishing every tick's result to aggregator. Providers never share mutable
// state; each loop runs independently and a slow or failed tick cannot affect
// the next one.
//
// The caller must wg.Add(1) before starting the loop goroutine so a Wait
// cannot pass before the loop registers.
func RunProviderLoop(log *log.Logger,
	wg *sync.WaitGroup,
	provider Provider,
	aggregator *feed.Aggregator,
	shutdownSignal chan bool) {

	defer wg.Done()

	loopDuration := provider.Interval()

	// buffered so an in-flight sleep send can complete after the loop exits
	sleepChan := make(chan bool, 1)
	// stagger concurrently started loops so they don't hit the schedule store
	// in lockstep on startup
	sleep := database.Jitter(loopDuration / 4)

	for {

		go func() {
			time.Sleep(sleep)
			sleepChan <- true
		}()

		select {
		case <-shutdownSignal:
			log.Printf("exiting %s provider loop on shutdown signal", provider.Name())
			return
		case <-sleepChan:
			break
		}

		//set default sleep for next loop in the event of an error after continue statements
		sleep = loopDuration

		// mark the time we start working
		start := time.Now()

		vehicles, alerts, err := provider.Poll(start)
		if err != nil {
			// degrade to an empty tick for this source, published exactly like
			// a successful empty result
			log.Printf("error polling provider %s, publishing empty tick. error:%v\n",
				provider.Name(), err)
			vehicles, alerts = nil, nil
		}

		aggregator.Publish(provider.Name(), vehicles, alerts)

		// attempt to run the loop every interval by subtracting the time it took to perform the work
		workTook := time.Since(start)

		log.Printf("%s tick took %s\n", provider.Name(), fmtDuration(workTook))

		// if the work took longer than the interval don't sleep at all on the next loop
		if workTook >= loopDuration {
			sleep = time.Duration(0)
		} else {
			sleep = loopDuration - workTook
		}

	}
}

// fmtDuration returns a string presentation of time.Duration for logging
func fmtDuration(d time.Duration) string {
	d = d.Round(time.Millisecond)
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	mill := d / time.Millisecond
	return fmt.Sprintf("%02d:%02d.%d", m, s, mill)
}

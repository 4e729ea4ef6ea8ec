package main

import (
	"fmt"
	logger "log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/nats-io/nats.go"

	"github.com/transitlive/tripmatch/app/vehicle-matcher/feed"
	"github.com/transitlive/tripmatch/app/vehicle-matcher/matcher"
	"github.com/transitlive/tripmatch/app/vehicle-matcher/providers"
	"github.com/transitlive/tripmatch/business/data/schedule"
	"github.com/transitlive/tripmatch/foundation/database"
	"github.com/transitlive/tripmatch/foundation/httpclient"
)

var build = "develop"

func main() {
	log := logger.New(os.Stdout, "VEHICLE_MATCHER : ", logger.LstdFlags|logger.Lmicroseconds|logger.Lshortfile)
	if err := run(log); err != nil {
		log.Printf("main: error: %v", err)
		os.Exit(1)
	}
}

func run(log *logger.Logger) error {
	var cfg struct {
		conf.Version
		Args conf.Args
		DB   struct {
			User         string `conf:"default:postgres"`
			Password     string `conf:"default:postgres,noprint"`
			Host         string `conf:"default:0.0.0.0"`
			Name         string `conf:"default:postgres"`
			DisableTLS   bool   `conf:"default:true"`
			MaxOpenConns int    `conf:"default:8"`
		}
		Nats struct {
			Url     string `conf:"default:nats://localhost:4222"`
			Subject string `conf:"default:vehicle-feed"`
			Publish bool   `conf:"default:true"`
		}
		Web struct {
			HttpPort int `conf:"default:8723"`
		}
		Match struct {
			FetchTimeoutSeconds  int `conf:"default:20"`
			QueryDeadlineSeconds int `conf:"default:15"`
			ScoreWorkers         int `conf:"default:4"`
		}
		Providers struct {
			Tram struct {
				Enabled         bool   `conf:"default:true"`
				Url             string `conf:"default:https://data.example.net/trams/positions.json"`
				IntervalSeconds int    `conf:"default:60"`
			}
			Platform struct {
				Enabled         bool   `conf:"default:true"`
				Url             string `conf:"default:https://platform.example.net/v2/vehicle-activities.json"`
				IntervalSeconds int    `conf:"default:60"`
			}
			Coach struct {
				Enabled         bool   `conf:"default:true"`
				Url             string `conf:"default:https://coaches.example.net/live/vehicles.json"`
				IntervalSeconds int    `conf:"default:60"`
			}
			Regional struct {
				Enabled         bool   `conf:"default:true"`
				Url             string `conf:"default:https://regional.example.net/positions.json"`
				DisruptionsUrl  string `conf:"default:https://regional.example.net/disruptions.xml"`
				IntervalSeconds int    `conf:"default:60"`
			}
			Firstmile struct {
				Enabled         bool   `conf:"default:true"`
				Url             string `conf:"default:https://firstmile.example.net/shuttles.json"`
				IntervalSeconds int    `conf:"default:60"`
			}
		}
	}
	cfg.Version.SVN = build
	cfg.Version.Desc = "Match live vehicle positions to scheduled trips and republish a unified feed"
	const prefix = "MATCHER"
	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %w", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %w", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Printf("main : Started : Application initializing : version %s", build)
	defer log.Println("main: Completed")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	// =========================================================================
	// Start Database

	log.Println("main: Initializing database support")

	db, err := database.Open(database.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		DisableTLS:   cfg.DB.DisableTLS,
		MaxOpenConns: cfg.DB.MaxOpenConns,
	})
	if err != nil {
		return fmt.Errorf("connecting to db: %w", err)
	}
	defer func() {
		log.Printf("main: Database Stopping : %s", cfg.DB.Host)
		err = db.Close()
		if err != nil {
			log.Printf("main: error closing database: %v", err)
		}
	}()

	// =========================================================================
	// Start NATS

	var natsConnection *nats.Conn
	if cfg.Nats.Publish {
		log.Println("main: Initializing NATS support")
		natsConnection, err = nats.Connect(cfg.Nats.Url)
		if err != nil {
			return fmt.Errorf("connecting to nats at %s: %w", cfg.Nats.Url, err)
		}
		defer natsConnection.Close()
	}

	// =========================================================================
	// Build collaborators and providers

	store := schedule.MakeStore(log, db, time.Duration(cfg.Match.QueryDeadlineSeconds)*time.Second)
	client := httpclient.MakeClient(time.Duration(cfg.Match.FetchTimeoutSeconds) * time.Second)
	aggregator := feed.MakeAggregator(log, natsConnection, cfg.Nats.Subject, cfg.Nats.Publish)

	var providerList []matcher.Provider
	if cfg.Providers.Tram.Enabled {
		providerList = append(providerList, providers.MakeTramProvider(log, client, store,
			cfg.Providers.Tram.Url,
			time.Duration(cfg.Providers.Tram.IntervalSeconds)*time.Second,
			cfg.Match.ScoreWorkers))
	}
	if cfg.Providers.Platform.Enabled {
		providerList = append(providerList, providers.MakePlatformProvider(log, client, store,
			cfg.Providers.Platform.Url,
			time.Duration(cfg.Providers.Platform.IntervalSeconds)*time.Second,
			cfg.Match.ScoreWorkers))
	}
	if cfg.Providers.Coach.Enabled {
		providerList = append(providerList, providers.MakeCoachProvider(log, client, store,
			cfg.Providers.Coach.Url,
			time.Duration(cfg.Providers.Coach.IntervalSeconds)*time.Second,
			cfg.Match.ScoreWorkers))
	}
	if cfg.Providers.Regional.Enabled {
		providerList = append(providerList, providers.MakeRegionalProvider(log, client, store,
			cfg.Providers.Regional.Url,
			cfg.Providers.Regional.DisruptionsUrl,
			time.Duration(cfg.Providers.Regional.IntervalSeconds)*time.Second,
			cfg.Match.ScoreWorkers))
	}
	if cfg.Providers.Firstmile.Enabled {
		providerList = append(providerList, providers.MakeFirstmileProvider(log, client, store,
			cfg.Providers.Firstmile.Url,
			time.Duration(cfg.Providers.Firstmile.IntervalSeconds)*time.Second,
			cfg.Match.ScoreWorkers))
	}
	if len(providerList) == 0 {
		return fmt.Errorf("no providers enabled")
	}

	// =========================================================================
	// Start provider loops and diagnostics service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	wg := sync.WaitGroup{}

	var loopShutdowns []chan bool
	for _, provider := range providerList {
		loopShutdown := make(chan bool, 1)
		loopShutdowns = append(loopShutdowns, loopShutdown)
		wg.Add(1)
		go matcher.RunProviderLoop(log, &wg, provider, aggregator, loopShutdown)
	}

	webShutdown := make(chan bool, 1)
	wg.Add(1)
	go feed.RunWebService(log, &wg, aggregator, cfg.Web.HttpPort, webShutdown)

	<-shutdown
	log.Printf("main: Exiting on shutdown signal, shutting down subroutines")
	for _, loopShutdown := range loopShutdowns {
		loopShutdown <- true
	}
	webShutdown <- true
	wg.Wait()
	log.Printf("main: Subroutines shut down")

	return nil
}

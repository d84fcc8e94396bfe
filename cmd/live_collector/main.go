// Subscribe to the Tibber realtime consumption feed and store every
// measurement in InfluxDB. A watchdog exits the process when no data
// arrives for a minute so the supervisor can restart it.
package main

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mhoffm/energy_collectors/pkg/config"
	"github.com/mhoffm/energy_collectors/pkg/influx"
	"github.com/mhoffm/energy_collectors/pkg/tibber"
)

var (
	lastDataMu       sync.Mutex
	lastDataReceived = time.Now()
)

func main() {
	if err := config.LoadLiveCollectorConfig(); err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	cfg := config.ActiveLiveCollectorConfig
	if token := os.Getenv("API_TOKEN"); token != "" {
		cfg.ApiToken = token
	}

	client := tibber.NewClient(cfg.ApiToken)
	homeId := cfg.HomeId
	if homeId == "" {
		var err error
		homeId, err = client.FirstHomeId()
		if err != nil {
			log.Fatalf("Could not look up home: %v", err)
		}
	}

	writer := influx.NewWriter(cfg.Influx.Url, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	defer writer.Close()

	ctx := context.Background()
	if err := writer.EnsureBucket(ctx); err != nil {
		log.Fatalf("Bucket check failed: %v", err)
	}

	// Watchdog: a silent feed means the subscription is dead even when
	// the socket still looks healthy.
	go func() {
		for {
			time.Sleep(10 * time.Second)
			lastDataMu.Lock()
			silence := time.Since(lastDataReceived)
			lastDataMu.Unlock()
			if silence > time.Minute {
				log.Println("No data received within the last 60 seconds. Exiting.")
				os.Exit(1)
			}
		}
	}()

	tibber.SubscribeLive(cfg.SubscribeUrl, cfg.ApiToken, homeId, func(m *tibber.LiveMeasurement) {
		lastDataMu.Lock()
		lastDataReceived = time.Now()
		lastDataMu.Unlock()

		ts, err := time.Parse(time.RFC3339, m.Timestamp)
		if err != nil {
			ts = time.Now().UTC()
		}
		writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		err = writer.WritePoint(writeCtx,
			"tibber_LiveMeasurement",
			nil,
			map[string]interface{}{
				"power":                          m.Power,
				"powerProduction":                m.PowerProduction,
				"lastMeterConsumption":           m.LastMeterConsumption,
				"lastMeterProduction":            m.LastMeterProduction,
				"accumulatedConsumption":         m.AccumulatedConsumption,
				"accumulatedProduction":          m.AccumulatedProduction,
				"accumulatedConsumptionLastHour": m.AccumulatedConsumptionLastHour,
				"accumulatedProductionLastHour":  m.AccumulatedProductionLastHour,
			},
			ts,
		)
		if err != nil {
			log.Printf("Error while writing to InfluxDB: %v", err)
			os.Exit(1)
		}
	})
}

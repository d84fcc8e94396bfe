// Fetch price information from the Tibber API and store it in InfluxDB.
// By default fetches today's and tomorrow's prices; with fetch_all set
// it pages through the whole history from the configured cursor.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/mhoffm/energy_collectors/pkg/config"
	"github.com/mhoffm/energy_collectors/pkg/influx"
	"github.com/mhoffm/energy_collectors/pkg/tibber"
)

func main() {
	if err := config.LoadPriceCollectorConfig(); err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	cfg := config.ActivePriceCollectorConfig
	if token := os.Getenv("API_TOKEN"); token != "" {
		cfg.ApiToken = token
	}

	client := tibber.NewClient(cfg.ApiToken)

	var records []tibber.PriceRecord
	var err error
	if cfg.FetchAll {
		log.Printf("Fetching price information after %s", cfg.StartAfter)
		records, err = client.FetchAllPriceInfo(tibber.EncodeCursor(cfg.StartAfter))
	} else {
		log.Printf("Fetching today's price information")
		records, err = client.FetchPriceInfoToday()
	}
	if err != nil {
		log.Printf("Failed to fetch price info: %v", err)
	}
	if len(records) == 0 {
		log.Println("No new records to fetch.")
		return
	}
	log.Printf("Fetched %d records", len(records))

	writer := influx.NewWriter(cfg.Influx.Url, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := writer.EnsureBucket(ctx); err != nil {
		log.Fatalf("Bucket check failed: %v", err)
	}

	for _, record := range records {
		ts, err := time.Parse(time.RFC3339, record.StartsAt)
		if err != nil {
			log.Printf("Skipping record with bad timestamp %q: %v", record.StartsAt, err)
			continue
		}
		err = writer.WritePoint(ctx,
			"energy_prices",
			map[string]string{"level": record.Level},
			map[string]interface{}{"total": record.Total},
			ts,
		)
		if err != nil {
			log.Fatalf("An error occurred while writing to InfluxDB: %v", err)
		}
	}
	log.Printf("Stored price records till %s", records[len(records)-1].StartsAt)
}

// Fetch historical consumption data from the Tibber API and store it
// in InfluxDB, tagged with the price level active during each period.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mhoffm/energy_collectors/pkg/config"
	"github.com/mhoffm/energy_collectors/pkg/influx"
	"github.com/mhoffm/energy_collectors/pkg/tibber"
)

func main() {
	if err := config.LoadConsumptionCollectorConfig(); err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	cfg := config.ActiveConsumptionCollectorConfig
	if token := os.Getenv("API_TOKEN"); token != "" {
		cfg.ApiToken = token
	}

	startAfter := cfg.StartAfter
	if startAfter == "" {
		// Default to yesterday so a daily run picks up the last day.
		startAfter = time.Now().AddDate(0, 0, -1).Format(time.RFC3339)
	}

	client := tibber.NewClient(cfg.ApiToken)
	records, err := client.FetchHistoricalConsumption(tibber.EncodeCursor(startAfter))
	if err != nil {
		log.Printf("Failed to fetch consumption data: %v", err)
	}
	log.Printf("Fetched %d historical consumption data records", len(records))
	if len(records) == 0 {
		log.Println("No historical consumption data available to store in InfluxDB")
		return
	}

	writer := influx.NewWriter(cfg.Influx.Url, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := writer.EnsureBucket(ctx); err != nil {
		log.Fatalf("Bucket check failed: %v", err)
	}

	for _, record := range records {
		if record.Consumption == nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, record.From)
		if err != nil {
			log.Printf("Skipping record with bad timestamp %q: %v", record.From, err)
			continue
		}

		level := queryPriceLevel(ctx, writer, cfg.PriceBucket, record.From, record.To)

		fields := map[string]interface{}{
			"consumption": *record.Consumption,
		}
		if record.Cost != nil {
			fields["cost"] = *record.Cost
		}
		if record.UnitPrice != nil {
			fields["unitPrice"] = *record.UnitPrice
		}
		if record.UnitPriceVAT != nil {
			fields["unitPriceVAT"] = *record.UnitPriceVAT
		}

		err = writer.WritePoint(ctx,
			"historical_consumption",
			map[string]string{"level": level},
			fields,
			ts,
		)
		if err != nil {
			log.Fatalf("An error occurred while writing to InfluxDB: %v", err)
		}
	}
	log.Printf("Historical consumption data stored till %s", records[len(records)-1].From)
}

// queryPriceLevel looks up the stored price level covering the period.
// Missing data defaults to NORMAL rather than dropping the record.
func queryPriceLevel(ctx context.Context, writer *influx.Writer, bucket, start, end string) string {
	flux := fmt.Sprintf(`from(bucket: %q)
        |> range(start: %s, stop: %s)
        |> filter(fn: (r) => r._measurement == "energy_prices")
        |> filter(fn: (r) => r._field == "total")
        |> keep(columns: ["level"])
        |> limit(n: 1)
    `, bucket, start, end)

	level, err := writer.QueryFirstString(ctx, flux, "level")
	if err != nil {
		log.Printf("Price level query failed for %s - %s: %v", start, end, err)
		return "NORMAL"
	}
	if level == "" {
		log.Printf("No price level found for period %s - %s", start, end)
		return "NORMAL"
	}
	return level
}

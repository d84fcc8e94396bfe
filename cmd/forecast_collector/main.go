// Fetch rooftop PV forecast data from Solcast and store it in InfluxDB.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mhoffm/energy_collectors/pkg/config"
	"github.com/mhoffm/energy_collectors/pkg/influx"
	"github.com/mhoffm/energy_collectors/pkg/solcast"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the data instead of writing to InfluxDB")
	flag.Parse()

	if err := config.LoadForecastCollectorConfig(); err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	cfg := config.ActiveForecastCollectorConfig
	if token := os.Getenv("SOLCAST_TOKEN"); token != "" {
		cfg.SolcastToken = token
	}
	if site := os.Getenv("SOLCAST_SITE"); site != "" {
		cfg.SolcastSite = site
	}

	client := solcast.NewClient(cfg.SolcastHost, cfg.SolcastToken, cfg.SolcastSite)
	forecasts, err := client.FetchForecasts()
	if err != nil {
		log.Fatalf("Failed to fetch forecast data: %v", err)
	}

	if *dryRun {
		out, _ := json.MarshalIndent(forecasts, "", "    ")
		fmt.Println(string(out))
		return
	}

	writer := influx.NewWriter(cfg.Influx.Url, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := writer.EnsureBucket(ctx); err != nil {
		log.Fatalf("Bucket check failed: %v", err)
	}

	for _, f := range forecasts {
		err := writer.WritePoint(ctx,
			"forecast",
			map[string]string{"site": cfg.SiteTag},
			map[string]interface{}{
				"estimate":   f.PvEstimate,
				"estimate10": f.PvEstimate10,
				"estimate90": f.PvEstimate90,
			},
			f.PeriodStart,
		)
		if err != nil {
			log.Fatalf("An error occurred while writing to InfluxDB: %v", err)
		}
	}
	log.Printf("Stored %d forecast slots", len(forecasts))
}

// Responsible for collecting one smart-meter reading and storing it in
// InfluxDB. Polls the meter bridge (or reads the IR head) until one
// valid frame decodes, then writes a single meter_live point.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/mhoffm/energy_collectors/pkg/config"
	"github.com/mhoffm/energy_collectors/pkg/influx"
	"github.com/mhoffm/energy_collectors/pkg/meter"
	"github.com/mhoffm/energy_collectors/pkg/sml"
	"github.com/mhoffm/energy_collectors/pkg/spool"
)

func main() {
	if err := config.LoadMeterCollectorConfig(); err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	cfg := config.ActiveMeterCollectorConfig
	if host := os.Getenv("TIBBERHOST"); host != "" {
		cfg.MeterHost = host
	}
	if pw := os.Getenv("TIBBERHOST_PASSWORD"); pw != "" {
		cfg.MeterPassword = pw
	}

	spool.Initialize()

	var reading *sml.Reading
	var err error
	switch cfg.Source {
	case "serial":
		source := &meter.SerialSource{Device: cfg.SerialDevice, Baudrate: cfg.Baudrate}
		reading, err = source.ReadOnce(0)
	default:
		source := &meter.HTTPSource{
			Host:     cfg.MeterHost,
			User:     cfg.MeterUser,
			Password: cfg.MeterPassword,
		}
		reading, err = source.ReadOnce(0)
	}
	if err != nil {
		log.Fatalf("Could not read meter: %v", err)
	}
	log.Printf("Decoded reading from meter %s with %d values", reading.MeterID, len(reading.Values))

	writer := influx.NewWriter(cfg.Influx.Url, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := writer.EnsureBucket(ctx); err != nil {
		log.Fatalf("Bucket check failed: %v", err)
	}

	if err := spool.Drain(cfg.Influx.Bucket, func(line string) error {
		return writer.WriteRecord(ctx, line)
	}); err != nil {
		log.Printf("Spool drain stopped: %v", err)
	}

	now := time.Now().UTC()
	tags := map[string]string{"meter": reading.MeterID}
	fields := make(map[string]interface{}, len(reading.Values))
	for name, value := range reading.Values {
		fields[name] = value
	}

	if err := writer.WritePoint(ctx, "meter_live", tags, fields, now); err != nil {
		log.Printf("An error occurred while writing to InfluxDB: %v", err)
		line := influx.Line("meter_live", tags, fields, now)
		if err := spool.Enqueue(cfg.Influx.Bucket, line); err != nil {
			log.Printf("Could not spool point: %v", err)
		}
	}
}

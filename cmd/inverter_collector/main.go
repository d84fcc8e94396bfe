// Scrape real-time data from a Deye inverter and store it in InfluxDB.
// One read cycle per invocation; exits nonzero when the inverter gives
// no usable response so the scheduler can alert.
package main

import (
	"context"
	"log"
	"math"
	"os"
	"time"

	"github.com/mhoffm/energy_collectors/pkg/atsession"
	"github.com/mhoffm/energy_collectors/pkg/config"
	"github.com/mhoffm/energy_collectors/pkg/deye"
	"github.com/mhoffm/energy_collectors/pkg/influx"
	"github.com/mhoffm/energy_collectors/pkg/spool"
)

func main() {
	if err := config.LoadInverterCollectorConfig(); err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	cfg := config.ActiveInverterCollectorConfig
	if ip := os.Getenv("DEYE_IP"); ip != "" {
		cfg.InverterIp = ip
	}

	spool.Initialize()

	if cfg.PingBeforeRead {
		if err := deye.Ping(cfg.InverterIp); err != nil {
			log.Printf("Inverter ping failed: %v", err)
			os.Exit(1)
		}
	}

	var reader deye.RegisterReader
	switch cfg.Transport {
	case "tcp":
		reader = &deye.TCPReader{
			Host:    cfg.InverterIp,
			Port:    cfg.ModbusTcpPort,
			SlaveID: byte(cfg.ModbusSlaveId),
		}
	default:
		reader = &deye.ATReader{
			Connector: atsession.NewConnector(cfg.InverterIp, cfg.AtPort),
		}
	}

	fields, err := deye.ReadTelemetry(reader)
	if err != nil {
		log.Printf("No response received: %v", err)
		os.Exit(1)
	}

	// Sanity check: a freshly booted logger answers with zeroed
	// registers; do not store those.
	if fields["pv2_total_energy"] <= 0 {
		log.Printf("Rejected implausible snapshot (pv2_total_energy = %v)", fields["pv2_total_energy"])
		os.Exit(1)
	}

	writer := influx.NewWriter(cfg.Influx.Url, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
	defer writer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := writer.EnsureBucket(ctx); err != nil {
		log.Fatalf("Bucket check failed: %v", err)
	}

	now := time.Now().UTC()
	unit := cfg.Unit
	points := []struct {
		measurement string
		tags        map[string]string
		fields      map[string]interface{}
	}{
		{
			measurement: "operation",
			tags:        map[string]string{"pv_unit": unit},
			fields: map[string]interface{}{
				"uptime":          fields["uptime"],
				"operating_power": round2(fields["operating_power"]),
				"radiator_temp":   round2(fields["radiator_temp"]),
			},
		},
		{
			measurement: "ac",
			tags:        map[string]string{"pv_unit": unit},
			fields: map[string]interface{}{
				"day_energy":   round2(fields["day_energy"]),
				"total_energy": round2(fields["total_energy"]),
				"freq":         round2(fields["freq"]),
				"active_power": round2(fields["active_power"]),
			},
		},
		{
			measurement: "ac",
			tags:        map[string]string{"pv_unit": unit, "phase": "l1"},
			fields: map[string]interface{}{
				"voltage": round2(fields["l1_voltage"]),
				"current": round2(fields["l1_current"]),
			},
		},
		{
			measurement: "dc",
			tags:        map[string]string{"pv_unit": unit, "string": "pv1"},
			fields: map[string]interface{}{
				"voltage":      round2(fields["pv1_voltage"]),
				"current":      round2(fields["pv1_current"]),
				"day_energy":   round2(fields["pv1_day_energy"]),
				"total_energy": round2(fields["pv1_total_energy"]),
			},
		},
		{
			measurement: "dc",
			tags:        map[string]string{"pv_unit": unit, "string": "pv2"},
			fields: map[string]interface{}{
				"voltage":      round2(fields["pv2_voltage"]),
				"current":      round2(fields["pv2_current"]),
				"day_energy":   round2(fields["pv2_day_energy"]),
				"total_energy": round2(fields["pv2_total_energy"]),
			},
		},
	}

	// Drain anything a previous failed cycle left behind first.
	if err := spool.Drain(cfg.Influx.Bucket, func(line string) error {
		return writer.WriteRecord(ctx, line)
	}); err != nil {
		log.Printf("Spool drain stopped: %v", err)
	}

	for _, p := range points {
		if err := writer.WritePoint(ctx, p.measurement, p.tags, p.fields, now); err != nil {
			log.Printf("An error occurred while writing to InfluxDB: %v", err)
			line := influx.Line(p.measurement, p.tags, p.fields, now)
			if err := spool.Enqueue(cfg.Influx.Bucket, line); err != nil {
				log.Printf("Could not spool point: %v", err)
			}
		}
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

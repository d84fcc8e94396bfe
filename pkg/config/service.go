package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mhoffm/energy_collectors/pkg/pathing"
)

var (
	ActiveInverterCollectorConfig    *InverterCollectorConfig
	ActiveMeterCollectorConfig       *MeterCollectorConfig
	ActivePriceCollectorConfig       *PriceCollectorConfig
	ActiveConsumptionCollectorConfig *ConsumptionCollectorConfig
	ActiveForecastCollectorConfig    *ForecastCollectorConfig
	ActiveLiveCollectorConfig        *LiveCollectorConfig
)

func defaultInflux(bucket string) InfluxConfig {
	return InfluxConfig{
		Url:    "http://localhost:8086",
		Token:  "",
		Org:    "myOrg",
		Bucket: bucket,
	}
}

// load reads the named config file, creating it with defaults on first
// run so a fresh install has a file to edit.
func load(fileName string, cfg interface{}, defaults func()) error {
	configPath := filepath.Join(pathing.GetConfigDir(), fileName)

	// Create default if not exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		defaults()
		cfgFile, err := os.Create(configPath)
		if err != nil {
			return err
		}
		defer cfgFile.Close()
		toml.NewEncoder(cfgFile).Encode(cfg)
		return nil
	}

	// Load existing config
	_, err := toml.DecodeFile(configPath, cfg)
	return err
}

func LoadInverterCollectorConfig() error {
	cfg := &InverterCollectorConfig{}
	err := load("inverter_collector.toml", cfg, func() {
		*cfg = InverterCollectorConfig{
			InverterIp:     "192.168.200.1",
			Transport:      "at",
			AtPort:         48899,
			ModbusTcpPort:  502,
			ModbusSlaveId:  1,
			Unit:           "pv1",
			PingBeforeRead: false,
			Influx:         defaultInflux("pv_realtime"),
		}
	})
	if err != nil {
		return err
	}
	ActiveInverterCollectorConfig = cfg
	return nil
}

func LoadMeterCollectorConfig() error {
	cfg := &MeterCollectorConfig{}
	err := load("meter_collector.toml", cfg, func() {
		*cfg = MeterCollectorConfig{
			Source:       "http",
			MeterHost:    "tibber-host.local",
			MeterUser:    "admin",
			SerialDevice: "/dev/ttyUSB0",
			Baudrate:     9600,
			Influx:       defaultInflux("power_realtime"),
		}
	})
	if err != nil {
		return err
	}
	ActiveMeterCollectorConfig = cfg
	return nil
}

func LoadPriceCollectorConfig() error {
	cfg := &PriceCollectorConfig{}
	err := load("price_collector.toml", cfg, func() {
		*cfg = PriceCollectorConfig{
			Influx: defaultInflux("energy_prices"),
		}
	})
	if err != nil {
		return err
	}
	ActivePriceCollectorConfig = cfg
	return nil
}

func LoadConsumptionCollectorConfig() error {
	cfg := &ConsumptionCollectorConfig{}
	err := load("consumption_collector.toml", cfg, func() {
		*cfg = ConsumptionCollectorConfig{
			PriceBucket: "energy_prices",
			Influx:      defaultInflux("power_consumption"),
		}
	})
	if err != nil {
		return err
	}
	ActiveConsumptionCollectorConfig = cfg
	return nil
}

func LoadForecastCollectorConfig() error {
	cfg := &ForecastCollectorConfig{}
	err := load("forecast_collector.toml", cfg, func() {
		*cfg = ForecastCollectorConfig{
			SolcastHost: "https://api.solcast.com.au",
			Influx:      defaultInflux("solcast_forecast"),
		}
	})
	if err != nil {
		return err
	}
	ActiveForecastCollectorConfig = cfg
	return nil
}

func LoadLiveCollectorConfig() error {
	cfg := &LiveCollectorConfig{}
	err := load("live_collector.toml", cfg, func() {
		*cfg = LiveCollectorConfig{
			SubscribeUrl: "wss://websocket-api.tibber.com/v1-beta/gql/subscriptions",
			Influx:       defaultInflux("power_realtime"),
		}
	})
	if err != nil {
		return err
	}
	ActiveLiveCollectorConfig = cfg
	return nil
}

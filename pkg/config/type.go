package config

// InfluxConfig is embedded in every collector config. All collectors
// talk to the same instance but write into their own buckets.
type InfluxConfig struct {
	Url    string `toml:"influxdb_url"`
	Token  string `toml:"influxdb_token"`
	Org    string `toml:"influxdb_org"`
	Bucket string `toml:"influxdb_bucket"`
}

type InverterCollectorConfig struct {
	InverterIp string `toml:"inverter_ip"`
	// Transport is "at" for the WiFi logger's UDP AT protocol or "tcp"
	// for loggers that speak plain Modbus TCP.
	Transport      string `toml:"transport"`
	AtPort         int    `toml:"at_port"`
	ModbusTcpPort  int    `toml:"modbus_tcp_port"`
	ModbusSlaveId  int    `toml:"modbus_slave_id"`
	Unit           string `toml:"unit"`
	PingBeforeRead bool   `toml:"ping_before_read"`
	Influx         InfluxConfig
}

type MeterCollectorConfig struct {
	// Source is "http" for the meter bridge endpoint or "serial" for a
	// locally attached IR reading head.
	Source        string `toml:"source"`
	MeterHost     string `toml:"meter_host"`
	MeterUser     string `toml:"meter_user"`
	MeterPassword string `toml:"meter_password"`
	SerialDevice  string `toml:"serial_device"`
	Baudrate      uint   `toml:"baudrate"`
	Influx        InfluxConfig
}

type PriceCollectorConfig struct {
	ApiToken string `toml:"api_token"`
	// FetchAll pages through the whole price history instead of only
	// today and tomorrow.
	FetchAll   bool   `toml:"fetch_all"`
	StartAfter string `toml:"start_after"` // ISO timestamp cursor for full fetches
	Influx     InfluxConfig
}

type ConsumptionCollectorConfig struct {
	ApiToken    string `toml:"api_token"`
	StartAfter  string `toml:"start_after"`
	PriceBucket string `toml:"price_bucket"`
	Influx      InfluxConfig
}

type ForecastCollectorConfig struct {
	SolcastHost  string `toml:"solcast_host"`
	SolcastToken string `toml:"solcast_token"`
	SolcastSite  string `toml:"solcast_site"`
	SiteTag      string `toml:"site_tag"`
	Influx       InfluxConfig
}

type LiveCollectorConfig struct {
	ApiToken string `toml:"api_token"`
	// HomeId may be left empty; the collector looks up the first home
	// on the account.
	HomeId       string `toml:"home_id"`
	SubscribeUrl string `toml:"subscribe_url"`
	Influx       InfluxConfig
}

// Reading real-time telemetry from Deye string inverters, either
// through the WiFi logger's AT transport or straight over Modbus TCP.
package deye

import "github.com/mhoffm/energy_collectors/pkg/registers"

// The telemetry block lives in holding registers 60..112; one request
// covers every field below.
const (
	FirstReg uint16 = 60
	LastReg  uint16 = 112
)

// Fields is the static register layout of the real-time telemetry
// block. Addresses and scales from the vendor's Modbus register list.
var Fields = []registers.Field{
	{Name: "day_energy", Addr: 60, Kind: registers.Uint16, Scale: 0.1},
	{Name: "uptime", Addr: 60, Kind: registers.Uint16, Scale: 1},
	{Name: "total_energy", Addr: 63, Kind: registers.Uint32, Scale: 0.1},
	{Name: "pv1_day_energy", Addr: 65, Kind: registers.Uint16, Scale: 0.1},
	{Name: "pv2_day_energy", Addr: 66, Kind: registers.Uint16, Scale: 0.1},
	{Name: "pv1_total_energy", Addr: 69, Kind: registers.Uint32, Scale: 0.1},
	{Name: "pv2_total_energy", Addr: 71, Kind: registers.Uint32, Scale: 0.1},
	{Name: "l1_voltage", Addr: 73, Kind: registers.Int16, Scale: 0.1},
	{Name: "l1_current", Addr: 76, Kind: registers.Int16, Scale: 0.1},
	{Name: "freq", Addr: 79, Kind: registers.Int16, Scale: 0.01},
	{Name: "operating_power", Addr: 80, Kind: registers.Int16, Scale: 0.01},
	{Name: "active_power", Addr: 86, Kind: registers.Int32, Scale: 0.1},
	{Name: "radiator_temp", Addr: 90, Kind: registers.Int16, Scale: 0.01},
	{Name: "pv1_voltage", Addr: 109, Kind: registers.Int16, Scale: 0.1},
	{Name: "pv1_current", Addr: 110, Kind: registers.Int16, Scale: 0.1},
	{Name: "pv2_voltage", Addr: 111, Kind: registers.Int16, Scale: 0.1},
	{Name: "pv2_current", Addr: 112, Kind: registers.Int16, Scale: 0.1},
}

// Snapshot decodes the full telemetry field set from one register map.
func Snapshot(m registers.Map) (map[string]float64, error) {
	return registers.Decode(m, Fields)
}

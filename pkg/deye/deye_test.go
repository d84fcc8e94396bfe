package deye

import (
	"testing"

	"github.com/mhoffm/energy_collectors/pkg/registers"
)

// telemetry block worth of registers with a few known values planted.
func testMap() registers.Map {
	data := make([]byte, (int(LastReg)-int(FirstReg)+1)*2)
	set := func(addr uint16, value uint16) {
		off := int(addr-FirstReg) * 2
		data[off] = byte(value >> 8)
		data[off+1] = byte(value)
	}
	set(60, 1000)   // day_energy 100.0
	set(63, 0x0001) // total_energy high word
	set(64, 0xe240) // total_energy low word: 123456 -> 12345.6
	set(71, 0x0000) // pv2_total_energy high
	set(72, 100)    // pv2_total_energy low: 10.0
	set(73, 0xffff) // l1_voltage -0.1
	set(79, 5000)   // freq 50.0
	return registers.NewMap(FirstReg, data)
}

func TestSnapshot(t *testing.T) {
	snapshot, err := Snapshot(testMap())
	if err != nil {
		t.Fatalf("Snapshot() err=%v", err)
	}

	checks := map[string]float64{
		"day_energy":       100.0,
		"uptime":           1000,
		"total_energy":     12345.6,
		"pv2_total_energy": 10.0,
		"l1_voltage":       -0.1,
		"freq":             50.0,
	}
	for name, want := range checks {
		got, ok := snapshot[name]
		if !ok {
			t.Errorf("missing field %s", name)
			continue
		}
		if diff := got - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	if len(snapshot) != len(Fields) {
		t.Errorf("decoded %d fields, want %d", len(snapshot), len(Fields))
	}
}

type fakeReader struct {
	m   registers.Map
	err error
}

func (f *fakeReader) ReadHoldingRegisters(firstReg, lastReg uint16) (registers.Map, error) {
	if f.err != nil {
		return registers.Map{}, f.err
	}
	return f.m, nil
}

func TestReadTelemetry(t *testing.T) {
	fields, err := ReadTelemetry(&fakeReader{m: testMap()})
	if err != nil {
		t.Fatalf("ReadTelemetry() err=%v", err)
	}
	if fields["day_energy"] != 100.0 {
		t.Errorf("day_energy = %v, want 100.0", fields["day_energy"])
	}
}

func TestReadTelemetry_NoResponse(t *testing.T) {
	if _, err := ReadTelemetry(&fakeReader{err: ErrNoResponse}); err == nil {
		t.Fatal("expected error when transport gives no response")
	}
}

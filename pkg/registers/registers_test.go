package registers

import "testing"

func TestSignedDecodeBoundaries(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int16
	}{
		{"minus one", []byte{0xff, 0xff}, -1},
		{"most negative", []byte{0x80, 0x00}, -32768},
		{"most positive", []byte{0x7f, 0xff}, 32767},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMap(0, tt.data)
			if got := m.I16(0); got != tt.want {
				t.Errorf("I16 = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSignedDecode32Boundaries(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int32
	}{
		{"minus one", []byte{0xff, 0xff, 0xff, 0xff}, -1},
		{"most negative", []byte{0x80, 0x00, 0x00, 0x00}, -2147483648},
		{"most positive", []byte{0x7f, 0xff, 0xff, 0xff}, 2147483647},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMap(0, tt.data)
			if got := m.I32(0); got != tt.want {
				t.Errorf("I32 = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestU32HighWordFirst(t *testing.T) {
	m := NewMap(10, []byte{0x00, 0x01, 0x00, 0x02})
	if got := m.U32(10); got != 0x00010002 {
		t.Errorf("U32 = %#08x, want 0x00010002", got)
	}
}

func TestDecodeScaling(t *testing.T) {
	// Register 60 = 1000, scale 0.1 -> 100.0.
	m := NewMap(60, []byte{0x03, 0xe8})
	fields := []Field{{Name: "day_energy", Addr: 60, Kind: Uint16, Scale: 0.1}}

	values, err := Decode(m, fields)
	if err != nil {
		t.Fatalf("Decode() err=%v", err)
	}
	if values["day_energy"] != 100.0 {
		t.Errorf("day_energy = %v, want 100.0", values["day_energy"])
	}
}

func TestDecodeRejectsOutOfRangeField(t *testing.T) {
	m := NewMap(60, make([]byte, 4)) // registers 60..61

	tests := []struct {
		name  string
		field Field
	}{
		{"below range", Field{Name: "x", Addr: 59, Kind: Uint16, Scale: 1}},
		{"above range", Field{Name: "x", Addr: 62, Kind: Uint16, Scale: 1}},
		{"wide field past end", Field{Name: "x", Addr: 61, Kind: Uint32, Scale: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(m, []Field{tt.field}); err == nil {
				t.Error("expected error for field outside read range")
			}
		})
	}
}

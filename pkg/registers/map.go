// Decoding of raw holding register data into scaled telemetry values.
// A Map holds the contiguous register block returned by one read request;
// fields describe how individual registers map to named measurements.
package registers

// Map is a contiguous block of 16-bit holding registers starting at a
// fixed address. One allocation sized to the register count, addressed
// by offset from the first register.
type Map struct {
	first uint16
	data  []byte
}

// NewMap wraps raw register data. The data slice must hold exactly two
// bytes per register.
func NewMap(first uint16, data []byte) Map {
	return Map{first: first, data: data}
}

// First returns the address of the first register in the map.
func (m Map) First() uint16 {
	return m.first
}

// Count returns the number of registers in the map.
func (m Map) Count() int {
	return len(m.data) / 2
}

// Contains reports whether words consecutive registers starting at addr
// all fall inside the map.
func (m Map) Contains(addr uint16, words int) bool {
	if addr < m.first {
		return false
	}
	return int(addr-m.first)+words <= m.Count()
}

// U16 reads a single register as an unsigned 16-bit value, big-endian.
func (m Map) U16(addr uint16) uint16 {
	off := int(addr-m.first) * 2
	return uint16(m.data[off])<<8 | uint16(m.data[off+1])
}

// U32 reads two consecutive registers as an unsigned 32-bit value,
// high word first.
func (m Map) U32(addr uint16) uint32 {
	return uint32(m.U16(addr))<<16 | uint32(m.U16(addr+1))
}

// I16 reads a single register as a two's-complement signed value.
func (m Map) I16(addr uint16) int16 {
	return int16(m.U16(addr))
}

// I32 reads two consecutive registers as a two's-complement signed value.
func (m Map) I32(addr uint16) int32 {
	return int32(m.U32(addr))
}

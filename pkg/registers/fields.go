package registers

import "fmt"

// Kind selects the width and signedness of a register field.
type Kind uint8

const (
	Uint16 Kind = iota
	Int16
	Uint32
	Int32
)

func (k Kind) words() int {
	switch k {
	case Uint32, Int32:
		return 2
	default:
		return 1
	}
}

// Field describes one named measurement backed by one or two registers.
// The decoded register value is multiplied by Scale to recover the
// real-world quantity.
type Field struct {
	Name  string
	Addr  uint16
	Kind  Kind
	Scale float64
}

// Decode applies all fields against one register map and returns the
// decoded values keyed by field name. A field referencing a register
// outside the map is rejected rather than read out of bounds.
func Decode(m Map, fields []Field) (map[string]float64, error) {
	values := make(map[string]float64, len(fields))
	for _, f := range fields {
		if !m.Contains(f.Addr, f.Kind.words()) {
			return nil, fmt.Errorf("field %s: register %d outside read range %d..%d",
				f.Name, f.Addr, m.First(), int(m.First())+m.Count()-1)
		}
		var raw float64
		switch f.Kind {
		case Uint16:
			raw = float64(m.U16(f.Addr))
		case Int16:
			raw = float64(m.I16(f.Addr))
		case Uint32:
			raw = float64(m.U32(f.Addr))
		case Int32:
			raw = float64(m.I32(f.Addr))
		}
		values[f.Name] = raw * f.Scale
	}
	return values, nil
}

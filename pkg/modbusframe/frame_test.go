package modbusframe

import (
	"errors"
	"testing"
)

// buildResponse constructs a valid response frame for the register
// range with the given register data.
func buildResponse(t *testing.T, firstReg, lastReg uint16, data []byte) []byte {
	t.Helper()
	regCount := int(lastReg) - int(firstReg) + 1
	if len(data) != regCount*2 {
		t.Fatalf("data length %d does not match %d registers", len(data), regCount)
	}
	frame := []byte{0x01, 0x03, byte(regCount * 2)}
	frame = append(frame, data...)
	return AppendCRC(frame)
}

func TestBuildReadRequest(t *testing.T) {
	frame, err := BuildReadRequest(60, 112)
	if err != nil {
		t.Fatalf("BuildReadRequest() err=%v", err)
	}
	want := []byte{0x01, 0x03, 0x00, 0x3c, 0x00, 0x35}
	if string(frame) != string(want) {
		t.Fatalf("frame = %x, want %x", frame, want)
	}
}

func TestBuildReadRequest_InvalidRange(t *testing.T) {
	if _, err := BuildReadRequest(112, 60); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestAppendCRC_ByteOrder(t *testing.T) {
	// CRC-16/MODBUS of 01 03 00 00 00 01 is 0x0A84, transmitted
	// low byte first.
	frame := AppendCRC([]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01})
	want := []byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01, 0x84, 0x0a}
	if string(frame) != string(want) {
		t.Fatalf("frame = %x, want %x", frame, want)
	}
}

func TestParseResponse_RoundTrip(t *testing.T) {
	const firstReg, lastReg = 60, 70
	regCount := lastReg - firstReg + 1

	data := make([]byte, regCount*2)
	for i := range data {
		data[i] = byte(i + 1)
	}
	frame := buildResponse(t, firstReg, lastReg, data)

	m, err := ParseResponse(frame, firstReg, lastReg)
	if err != nil {
		t.Fatalf("ParseResponse() err=%v", err)
	}
	if m.Count() != regCount {
		t.Fatalf("register count = %d, want %d", m.Count(), regCount)
	}
	for addr := uint16(firstReg); addr <= lastReg; addr++ {
		i := int(addr-firstReg) * 2
		want := uint16(data[i])<<8 | uint16(data[i+1])
		if got := m.U16(addr); got != want {
			t.Errorf("register %d = %#04x, want %#04x", addr, got, want)
		}
	}
}

func TestParseResponse_CorruptedByte(t *testing.T) {
	const firstReg, lastReg = 60, 63
	data := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04}
	frame := buildResponse(t, firstReg, lastReg, data)

	// Flipping any single data byte must fail the checksum.
	for i := 0; i < len(frame)-2; i++ {
		corrupted := append([]byte{}, frame...)
		corrupted[i] ^= 0xff
		_, err := ParseResponse(corrupted, firstReg, lastReg)
		if !errors.Is(err, ErrCRCMismatch) {
			t.Errorf("byte %d: err = %v, want ErrCRCMismatch", i, err)
		}
	}
}

func TestParseResponse_Truncated(t *testing.T) {
	const firstReg, lastReg = 60, 63
	data := []byte{0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04}
	frame := buildResponse(t, firstReg, lastReg, data)

	// Truncating by any amount must report a framing error, never a
	// checksum error; the length check runs first.
	for cut := 1; cut <= len(frame); cut++ {
		_, err := ParseResponse(frame[:len(frame)-cut], firstReg, lastReg)
		if !errors.Is(err, ErrFrameTooShort) {
			t.Errorf("cut %d: err = %v, want ErrFrameTooShort", cut, err)
		}
	}
}

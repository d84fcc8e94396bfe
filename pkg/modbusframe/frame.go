// Request frame construction and response frame validation for the
// Modbus read-holding-registers exchange used by the inverter logger.
package modbusframe

import (
	"errors"
	"fmt"
	"log"

	"github.com/sigurn/crc16"

	"github.com/mhoffm/energy_collectors/pkg/registers"
)

var (
	ErrFrameTooShort = errors.New("modbus frame is too short")
	ErrCRCMismatch   = errors.New("modbus frame crc is not valid")
)

// The logger always sits at slave address 1; frames carry it as their
// first byte on both directions.
const (
	slaveAddr                = 0x01
	funcReadHoldingRegisters = 0x03
)

var crcTable = crc16.MakeTable(crc16.CRC16_MODBUS)

// BuildReadRequest encodes a read-holding-registers request for an
// inclusive address range: slave address, function code, then the
// first register and register count, both big-endian.
func BuildReadRequest(firstReg, lastReg uint16) ([]byte, error) {
	if lastReg < firstReg {
		return nil, fmt.Errorf("invalid register range %d..%d", firstReg, lastReg)
	}
	regCount := lastReg - firstReg + 1
	return []byte{
		slaveAddr,
		funcReadHoldingRegisters,
		byte(firstReg >> 8), byte(firstReg),
		byte(regCount >> 8), byte(regCount),
	}, nil
}

// AppendCRC computes CRC-16/MODBUS over the frame and appends it in the
// byte-reversed (little-endian) order this device family puts on the wire.
func AppendCRC(frame []byte) []byte {
	crc := crc16.Checksum(frame, crcTable)
	return append(frame, byte(crc), byte(crc>>8))
}

// ParseResponse validates and slices a read-holding-registers response.
// The length check runs before the CRC check so a truncated frame is
// always reported as a framing error. On success the register data is
// returned as a map covering firstReg..lastReg inclusive.
func ParseResponse(frame []byte, firstReg, lastReg uint16) (registers.Map, error) {
	regCount := int(lastReg) - int(firstReg) + 1
	expectedLen := 2 + 1 + regCount*2
	if len(frame) < expectedLen+2 { // 2 bytes for crc
		log.Printf("Modbus frame is too short: %d bytes received, %d expected: %x", len(frame), expectedLen, frame)
		return registers.Map{}, ErrFrameTooShort
	}

	actualCRC := uint16(frame[expectedLen]) | uint16(frame[expectedLen+1])<<8
	expectedCRC := crc16.Checksum(frame[:expectedLen], crcTable)
	if actualCRC != expectedCRC {
		log.Printf("Modbus frame crc is not valid. Expected %04x, got %04x", expectedCRC, actualCRC)
		return registers.Map{}, ErrCRCMismatch
	}

	data := make([]byte, regCount*2)
	copy(data, frame[3:3+regCount*2])
	return registers.NewMap(firstReg, data), nil
}

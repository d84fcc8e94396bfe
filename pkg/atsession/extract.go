package atsession

import (
	"bytes"
	"encoding/hex"
	"fmt"
)

// extractModbusResponse recovers the raw Modbus frame from a "+ok=" AT
// response. The logger pads the hex payload with 0x10 bytes and wraps
// it in 4 bytes of AT framing on either side. Some firmware versions
// additionally append a literal "0000" to the hex string; that suffix
// is stripped exactly as observed, not generalized.
func extractModbusResponse(atResponse []byte) ([]byte, error) {
	stripped := bytes.ReplaceAll(atResponse, []byte{0x10}, nil)
	if len(stripped) < 8 {
		return nil, fmt.Errorf("AT response too short: %d bytes", len(stripped))
	}
	payload := string(stripped[4 : len(stripped)-4])
	if len(payload) > 4 && payload[len(payload)-4:] == "0000" {
		payload = payload[:len(payload)-4]
	}
	frame, err := hex.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode AT payload %q: %w", payload, err)
	}
	return frame, nil
}

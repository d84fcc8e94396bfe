// Decoding of SML (Smart Message Language) telemetry streams as pushed
// by OBIS-tagged smart meters. The stream arrives in arbitrary chunks;
// StreamReader reassembles transport frames and validates their
// checksums, the decoder in this package turns a valid frame into named
// scaled measurements.
package sml

import (
	"bytes"
	"errors"
	"log"

	"github.com/sigurn/crc16"
)

var (
	// ErrIncompleteFrame means no complete transport frame is buffered yet.
	ErrIncompleteFrame = errors.New("sml frame incomplete")
	// ErrCRC means a complete frame arrived but failed its checksum. The
	// broken frame has been discarded; callers keep polling.
	ErrCRC = errors.New("sml frame crc is not valid")
)

var (
	startSeq = []byte{0x1b, 0x1b, 0x1b, 0x1b, 0x01, 0x01, 0x01, 0x01}
	escSeq   = []byte{0x1b, 0x1b, 0x1b, 0x1b}

	frameCRCTable = crc16.MakeTable(crc16.CRC16_X_25)
)

// StreamReader accumulates raw stream bytes and extracts complete,
// checksum-validated transport frames.
type StreamReader struct {
	buf []byte
}

// Add appends received bytes to the internal buffer.
func (s *StreamReader) Add(p []byte) {
	s.buf = append(s.buf, p...)
}

// Frame extracts the next complete frame payload from the buffer with
// transport escaping and padding removed. Returns ErrIncompleteFrame
// while more bytes are needed and ErrCRC when a complete frame fails
// its checksum (the frame is dropped from the buffer either way once
// complete).
func (s *StreamReader) Frame() ([]byte, error) {
	start := bytes.Index(s.buf, startSeq)
	if start < 0 {
		// Keep a partial start sequence at the tail, drop the rest.
		if len(s.buf) > len(startSeq)-1 {
			s.buf = s.buf[len(s.buf)-(len(startSeq)-1):]
		}
		return nil, ErrIncompleteFrame
	}
	s.buf = s.buf[start:]

	end, ok := s.findFrameEnd()
	if !ok {
		return nil, ErrIncompleteFrame
	}

	frame := s.buf[:end]
	s.buf = s.buf[end:]

	// The checksum is transmitted least significant byte first.
	stored := uint16(frame[len(frame)-1])<<8 | uint16(frame[len(frame)-2])
	computed := crc16.Checksum(frame[:len(frame)-2], frameCRCTable)
	if stored != computed {
		log.Printf("SML frame crc mismatch: expected %04x, got %04x", computed, stored)
		return nil, ErrCRC
	}

	padding := int(frame[len(frame)-3])
	payload := frame[len(startSeq) : len(frame)-8]
	payload = unescape(payload)
	if padding > len(payload) {
		return nil, ErrCRC
	}
	return payload[:len(payload)-padding], nil
}

// findFrameEnd locates the end sequence (escape + 0x1a + padding count
// + 2 CRC bytes), skipping doubled escape sequences in the payload.
func (s *StreamReader) findFrameEnd() (int, bool) {
	i := len(startSeq)
	for {
		next := bytes.Index(s.buf[i:], escSeq)
		if next < 0 {
			return 0, false
		}
		pos := i + next
		if len(s.buf) < pos+8 {
			return 0, false
		}
		if bytes.Equal(s.buf[pos+4:pos+8], escSeq) {
			// Escaped escape sequence inside the payload.
			i = pos + 8
			continue
		}
		if s.buf[pos+4] == 0x1a {
			return pos + 8, true
		}
		i = pos + 4
	}
}

func unescape(payload []byte) []byte {
	doubled := append(append([]byte{}, escSeq...), escSeq...)
	return bytes.ReplaceAll(payload, doubled, escSeq)
}

package atsession

import (
	"bytes"
	"encoding/hex"
	"log"
	"net"
	"os"
	"strings"
	"testing"
	"time"
)

func TestExtractModbusResponse(t *testing.T) {
	frame := []byte{0x01, 0x03, 0x02, 0x00, 0x01, 0x79, 0x84}
	frameHex := hex.EncodeToString(frame)

	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{
			name:  "plain payload",
			input: []byte("+ok=" + frameHex + "\r\n\r\n"),
			want:  frame,
		},
		{
			name: "padding bytes stripped",
			input: append(append([]byte("+ok="),
				injectPadding([]byte(frameHex))...), '\r', '\n', '\r', '\n'),
			want: frame,
		},
		{
			name:  "trailing zero suffix stripped",
			input: []byte("+ok=" + frameHex + "0000" + "\r\n\r\n"),
			want:  frame,
		},
		{
			name:  "bare zero payload kept",
			input: []byte("+ok=" + "0000" + "\r\n\r\n"),
			want:  []byte{0x00, 0x00},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractModbusResponse(tt.input)
			if err != nil {
				t.Fatalf("extractModbusResponse() err=%v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("frame = %x, want %x", got, tt.want)
			}
		})
	}
}

// injectPadding sprinkles 0x10 bytes through the payload the way the
// logger does.
func injectPadding(payload []byte) []byte {
	var out []byte
	for i, b := range payload {
		out = append(out, b)
		if i%3 == 2 {
			out = append(out, 0x10)
		}
	}
	return out
}

func TestClassifyResponse(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  Status
	}{
		{"no response", nil, StatusNoData},
		{"no data reply", []byte("+ok=no data"), StatusNoData},
		{"device error", []byte("+ERR=timeout"), StatusDeviceError},
		{"garbage", []byte("hello"), StatusNoData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyResponse(tt.input); got.Status != tt.want {
				t.Errorf("status = %v, want %v", got.Status, tt.want)
			}
		})
	}
}

// fakeLogger answers the AT session protocol on a loopback UDP socket.
func fakeLogger(t *testing.T, invDataReply []byte) (host string, port int) {
	t.Helper()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { pc.Close() })

	go func() {
		buf := make([]byte, 2048)
		for {
			pc.SetReadDeadline(time.Now().Add(10 * time.Second))
			n, addr, err := pc.ReadFrom(buf)
			if err != nil {
				return
			}
			msg := string(buf[:n])
			switch {
			case msg == authCommand:
				pc.WriteTo([]byte("+ok="), addr)
			case strings.HasPrefix(msg, "AT+INVDATA="):
				pc.WriteTo(invDataReply, addr)
			}
		}
	}()

	udpAddr := pc.LocalAddr().(*net.UDPAddr)
	return udpAddr.IP.String(), udpAddr.Port
}

func TestExchange_Success(t *testing.T) {
	frame := []byte{0x01, 0x03, 0x02, 0x12, 0x34, 0xb5, 0x33}
	reply := []byte("+ok=" + hex.EncodeToString(frame) + "\r\n\r\n")

	host, port := fakeLogger(t, reply)
	conn := NewConnector(host, port)

	result := conn.Exchange([]byte{0x01, 0x03, 0x00, 0x3c, 0x00, 0x01, 0x44, 0x06})
	if result.Status != StatusOK {
		t.Fatalf("status = %v, want StatusOK", result.Status)
	}
	if !bytes.Equal(result.Frame, frame) {
		t.Errorf("frame = %x, want %x", result.Frame, frame)
	}
}

func TestExchange_NoData(t *testing.T) {
	host, port := fakeLogger(t, []byte("+ok=no data"))
	conn := NewConnector(host, port)

	result := conn.Exchange([]byte{0x01, 0x03, 0x00, 0x3c, 0x00, 0x01, 0x44, 0x06})
	if result.Status != StatusNoData {
		t.Fatalf("status = %v, want StatusNoData", result.Status)
	}
	if result.Frame != nil {
		t.Errorf("frame = %x, want nil", result.Frame)
	}
}

func TestExchange_DeviceError(t *testing.T) {
	host, port := fakeLogger(t, []byte("+ERR=-1"))
	conn := NewConnector(host, port)

	result := conn.Exchange([]byte{0x01, 0x03, 0x00, 0x3c, 0x00, 0x01, 0x44, 0x06})
	if result.Status != StatusDeviceError {
		t.Fatalf("status = %v, want StatusDeviceError", result.Status)
	}
}

func TestReachabilityLossLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	conn := NewConnector("no-such-host.invalid", 1)
	for i := 0; i < 3; i++ {
		result := conn.Exchange([]byte{0x01, 0x03, 0x00, 0x3c, 0x00, 0x01, 0x44, 0x06})
		if result.Status != StatusUnreachable {
			t.Fatalf("status = %v, want StatusUnreachable", result.Status)
		}
	}
	if n := strings.Count(buf.String(), "Could not open socket"); n != 1 {
		t.Errorf("loss logged %d times, want once", n)
	}
}

func TestReachabilityUntouchedBySessionOutcome(t *testing.T) {
	host, port := fakeLogger(t, []byte("+ok=no data"))
	conn := NewConnector(host, port)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	// Two exchanges that open fine but yield no data must leave the
	// connector reachable and never log a recovery.
	for i := 0; i < 2; i++ {
		result := conn.Exchange([]byte{0x01, 0x03, 0x00, 0x3c, 0x00, 0x01, 0x44, 0x06})
		if result.Status != StatusNoData {
			t.Fatalf("status = %v, want StatusNoData", result.Status)
		}
		if !conn.reachable {
			t.Fatal("connector marked unreachable after a completed session")
		}
	}
	if strings.Contains(buf.String(), "Re-connected") {
		t.Error("recovery logged without a preceding socket failure")
	}
}

package deye

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/goburrow/modbus"
	probing "github.com/prometheus-community/pro-bing"

	"github.com/mhoffm/energy_collectors/pkg/atsession"
	"github.com/mhoffm/energy_collectors/pkg/modbusframe"
	"github.com/mhoffm/energy_collectors/pkg/registers"
)

var (
	// ErrNoResponse means the device gave no usable answer. Expected
	// operating condition; the caller decides whether to abort.
	ErrNoResponse = errors.New("no response from inverter")
	// ErrNotReachable means the inverter did not answer a ping check.
	ErrNotReachable = errors.New("inverter not reachable")
)

// RegisterReader reads one contiguous block of holding registers.
type RegisterReader interface {
	ReadHoldingRegisters(firstReg, lastReg uint16) (registers.Map, error)
}

// ATReader reads registers through the WiFi logger's AT session.
type ATReader struct {
	Connector *atsession.Connector
}

func (r *ATReader) ReadHoldingRegisters(firstReg, lastReg uint16) (registers.Map, error) {
	frame, err := modbusframe.BuildReadRequest(firstReg, lastReg)
	if err != nil {
		return registers.Map{}, err
	}
	frame = modbusframe.AppendCRC(frame)

	result := r.Connector.Exchange(frame)
	switch result.Status {
	case atsession.StatusOK:
		return modbusframe.ParseResponse(result.Frame, firstReg, lastReg)
	case atsession.StatusDeviceError:
		return registers.Map{}, fmt.Errorf("%w: device reported error", ErrNoResponse)
	default:
		return registers.Map{}, ErrNoResponse
	}
}

// TCPReader reads registers over plain Modbus TCP for loggers wired
// straight to the LAN.
type TCPReader struct {
	Host    string
	Port    int
	SlaveID byte
}

func (r *TCPReader) ReadHoldingRegisters(firstReg, lastReg uint16) (registers.Map, error) {
	handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", r.Host, r.Port))
	handler.Timeout = 10 * time.Second
	handler.SlaveId = r.SlaveID

	if err := handler.Connect(); err != nil {
		handler.Close()
		return registers.Map{}, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	regCount := lastReg - firstReg + 1
	data, err := client.ReadHoldingRegisters(firstReg, regCount)
	if err != nil {
		return registers.Map{}, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	return registers.NewMap(firstReg, data), nil
}

// Ping checks whether the inverter answers on the network before a
// read cycle is attempted. Unprivileged UDP ping, one packet.
func Ping(host string) error {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return err
	}
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(false)

	if err := pinger.Run(); err != nil {
		return err
	}
	if pinger.Statistics().PacketsRecv == 0 {
		return ErrNotReachable
	}
	return nil
}

// ReadTelemetry performs one full read cycle against the telemetry
// block and returns the decoded snapshot.
func ReadTelemetry(reader RegisterReader) (map[string]float64, error) {
	regMap, err := reader.ReadHoldingRegisters(FirstReg, LastReg)
	if err != nil {
		return nil, err
	}
	snapshot, err := Snapshot(regMap)
	if err != nil {
		return nil, err
	}
	log.Printf("Decoded %d telemetry fields", len(snapshot))
	return snapshot, nil
}

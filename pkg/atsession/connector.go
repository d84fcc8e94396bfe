// AT command transport for inverter WiFi data loggers. The logger
// exposes a UDP service that carries Modbus frames hex-encoded inside
// vendor AT commands; each exchange authenticates, sends one request
// frame, reads one response and quits. Devices drop off the network
// routinely, so transport failures surface as a Result status instead
// of an error.
package atsession

import (
	"fmt"
	"log"
	"net"
	"time"
)

const (
	DefaultPort = 48899

	authCommand = "WIFIKIT-214028-READ"
	ackCommand  = "+ok"
	quitCommand = "AT+Q\n"

	receiveAttempts = 5
	receiveTimeout  = time.Second
	settleDelay     = 100 * time.Millisecond
	receiveBufSize  = 1024
)

// Status classifies the outcome of one request/response exchange.
type Status int

const (
	// StatusOK means a Modbus response frame was extracted.
	StatusOK Status = iota
	// StatusNoData means the device responded with no data, or not at all.
	StatusNoData
	// StatusUnreachable means the transport could not be set up or failed
	// mid-session.
	StatusUnreachable
	// StatusDeviceError means the device reported an error for the request.
	StatusDeviceError
)

// Result is the outcome of one Exchange. Frame is only set for StatusOK.
type Result struct {
	Status Status
	Frame  []byte
}

// Connector talks to one logger. The reachable flag is sticky across
// calls so that repeated failures against an absent device are logged
// once per loss instead of on every attempt.
type Connector struct {
	host      string
	port      int
	reachable bool
}

func NewConnector(host string, port int) *Connector {
	if port == 0 {
		port = DefaultPort
	}
	return &Connector{host: host, port: port, reachable: true}
}

func (c *Connector) openSocket() net.Conn {
	conn, err := net.Dial("udp", fmt.Sprintf("%s:%d", c.host, c.port))
	if err != nil {
		if c.reachable {
			log.Printf("Could not open socket on IP %s: %v", c.host, err)
		}
		c.reachable = false
		return nil
	}
	if !c.reachable {
		c.reachable = true
		log.Printf("Re-connected to socket on IP %s", c.host)
	}
	return conn
}

func (c *Connector) sendCommand(conn net.Conn, command []byte) error {
	if _, err := conn.Write(command); err != nil {
		return fmt.Errorf("send AT command: %w", err)
	}
	time.Sleep(settleDelay)
	return nil
}

// receiveResponse reads one datagram, retrying through timeouts up to
// the attempt budget. A nil return means nothing usable arrived.
func (c *Connector) receiveResponse(conn net.Conn) []byte {
	buf := make([]byte, receiveBufSize)
	for attempt := 1; attempt <= receiveAttempts; attempt++ {
		conn.SetReadDeadline(time.Now().Add(receiveTimeout))
		n, err := conn.Read(buf)
		if err == nil {
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				return data
			}
			log.Printf("No data received")
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			if attempt == receiveAttempts {
				log.Printf("Too many connection timeouts")
			}
			continue
		}
		log.Printf("Connection error: %s: %v", c.host, err)
		return nil
	}
	return nil
}

// authenticate wakes the logger up. The reply content is irrelevant;
// only the transport round-trip matters.
func (c *Connector) authenticate(conn net.Conn) error {
	if err := c.sendCommand(conn, []byte(authCommand)); err != nil {
		return err
	}
	c.receiveResponse(conn)
	return nil
}

func (c *Connector) deauthenticate(conn net.Conn) {
	// Best effort, no response expected.
	conn.Write([]byte(quitCommand))
}

// Exchange sends one CRC-appended Modbus request frame through the AT
// session and returns the outcome. Protocol errors never escape as Go
// errors past this boundary; every failure path maps to a Result status.
func (c *Connector) Exchange(reqFrame []byte) Result {
	conn := c.openSocket()
	if conn == nil {
		return Result{Status: StatusUnreachable}
	}
	defer conn.Close()

	// Mid-session failures do not touch the sticky flag; only socket
	// creation decides reachability, so recovery is logged once per
	// actual loss.
	if err := c.authenticate(conn); err != nil {
		log.Printf("Failed to read data over AT command: %v", err)
		return Result{Status: StatusUnreachable}
	}
	if err := c.sendCommand(conn, []byte(ackCommand)); err != nil {
		log.Printf("Failed to read data over AT command: %v", err)
		return Result{Status: StatusUnreachable}
	}

	frameHex := fmt.Sprintf("%x", reqFrame)
	invData := fmt.Sprintf("AT+INVDATA=%d,%s\n", len(frameHex)/2, frameHex)
	if err := c.sendCommand(conn, []byte(invData)); err != nil {
		log.Printf("Failed to read data over AT command: %v", err)
		return Result{Status: StatusUnreachable}
	}
	time.Sleep(settleDelay)

	atResponse := c.receiveResponse(conn)
	result := classifyResponse(atResponse)

	c.deauthenticate(conn)
	return result
}

func classifyResponse(atResponse []byte) Result {
	switch {
	case atResponse == nil, hasPrefix(atResponse, "+ok=no data"):
		log.Printf("No data received for request: %s", atResponse)
		return Result{Status: StatusNoData}
	case hasPrefix(atResponse, "+ERR="):
		log.Printf("Error received for request: %s", atResponse)
		return Result{Status: StatusDeviceError}
	case hasPrefix(atResponse, "+ok="):
		frame, err := extractModbusResponse(atResponse)
		if err != nil {
			log.Printf("Failed to extract Modbus response: %v", err)
			return Result{Status: StatusNoData}
		}
		return Result{Status: StatusOK, Frame: frame}
	default:
		log.Printf("Unexpected AT response: %s", atResponse)
		return Result{Status: StatusNoData}
	}
}

func hasPrefix(data []byte, prefix string) bool {
	return len(data) >= len(prefix) && string(data[:len(prefix)]) == prefix
}

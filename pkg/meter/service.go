// Acquisition of one smart-meter reading from either the meter bridge's
// HTTP endpoint or a local IR serial head. Both sources feed the same
// SML stream reader and keep polling through partial frames and
// checksum mismatches until one valid frame decodes.
package meter

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/jacobsa/go-serial/serial"

	"github.com/mhoffm/energy_collectors/pkg/sml"
)

const pollDelay = 100 * time.Millisecond

// HTTPSource polls the meter bridge's binary data endpoint with basic
// authentication. Each poll returns whatever stream bytes the bridge
// has buffered.
type HTTPSource struct {
	Host     string
	User     string
	Password string
	Client   *http.Client
}

func (h *HTTPSource) fetch() ([]byte, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	url := fmt.Sprintf("http://%s/data.json?node_id=1", h.Host)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(h.User, h.Password)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("meter endpoint returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ReadOnce polls until one complete, valid SML frame decodes and
// returns its reading. Transient fetch errors, partial frames and CRC
// mismatches keep the loop going; only the caller's deadline (via
// maxAttempts <= 0 for unbounded) ends it early.
func (h *HTTPSource) ReadOnce(maxAttempts int) (*sml.Reading, error) {
	stream := &sml.StreamReader{}
	attempts := 0
	for {
		attempts++
		if maxAttempts > 0 && attempts > maxAttempts {
			return nil, fmt.Errorf("no valid meter frame after %d polls", maxAttempts)
		}

		data, err := h.fetch()
		if err != nil {
			log.Printf("Error fetching meter data: %v", err)
			time.Sleep(pollDelay)
			continue
		}
		if len(data) == 0 {
			time.Sleep(pollDelay)
			continue
		}

		stream.Add(data)
		frame, err := stream.Frame()
		switch {
		case errors.Is(err, sml.ErrIncompleteFrame):
			continue
		case errors.Is(err, sml.ErrCRC):
			log.Printf("Discarded meter frame with bad checksum")
			continue
		case err != nil:
			log.Printf("Error extracting meter frame: %v", err)
			time.Sleep(pollDelay)
			continue
		}

		reading, err := sml.Decode(frame)
		if err != nil {
			log.Printf("Error decoding meter frame: %v", err)
			continue
		}
		return reading, nil
	}
}

// SerialSource reads the raw SML stream from an optical reading head.
type SerialSource struct {
	Device   string
	Baudrate uint
}

// ReadOnce opens the port, reads until one valid frame decodes and
// closes the port again.
func (s *SerialSource) ReadOnce(maxAttempts int) (*sml.Reading, error) {
	options := serial.OpenOptions{
		PortName:        s.Device,
		BaudRate:        s.Baudrate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}
	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	defer port.Close()
	log.Printf("Connected to meter head on %s", s.Device)

	stream := &sml.StreamReader{}
	buf := make([]byte, 512)
	attempts := 0
	for {
		attempts++
		if maxAttempts > 0 && attempts > maxAttempts {
			return nil, fmt.Errorf("no valid meter frame after %d reads", maxAttempts)
		}

		n, err := port.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("serial read: %w", err)
		}
		stream.Add(buf[:n])

		frame, err := stream.Frame()
		switch {
		case errors.Is(err, sml.ErrIncompleteFrame):
			continue
		case errors.Is(err, sml.ErrCRC):
			log.Printf("Discarded meter frame with bad checksum")
			continue
		case err != nil:
			return nil, err
		}

		reading, err := sml.Decode(frame)
		if err != nil {
			log.Printf("Error decoding meter frame: %v", err)
			continue
		}
		return reading, nil
	}
}

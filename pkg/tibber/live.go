package tibber

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"
)

// LiveMeasurement is one realtime packet from the meter subscription.
type LiveMeasurement struct {
	Timestamp                      string  `json:"timestamp"`
	Power                          float64 `json:"power"`
	PowerProduction                float64 `json:"powerProduction"`
	LastMeterConsumption           float64 `json:"lastMeterConsumption"`
	LastMeterProduction            float64 `json:"lastMeterProduction"`
	AccumulatedConsumption         float64 `json:"accumulatedConsumption"`
	AccumulatedProduction          float64 `json:"accumulatedProduction"`
	AccumulatedConsumptionLastHour float64 `json:"accumulatedConsumptionLastHour"`
	AccumulatedProductionLastHour  float64 `json:"accumulatedProductionLastHour"`
}

const liveSubscription = `subscription {
  liveMeasurement(homeId: "%s") {
    timestamp
    power
    powerProduction
    lastMeterConsumption
    lastMeterProduction
    accumulatedConsumption
    accumulatedProduction
    accumulatedConsumptionLastHour
    accumulatedProductionLastHour
  }
}`

type wsMessage struct {
	Id      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubscribeLive connects to the realtime websocket endpoint and calls
// handleMeasurement for every packet until interrupted. Lost
// connections are retried with exponential backoff.
func SubscribeLive(
	subscribeUrl, apiToken, homeId string,
	handleMeasurement func(m *LiveMeasurement),
) {
	const (
		maxRetries     = 10
		baseRetryDelay = 2 * time.Second
		maxRetryDelay  = 60 * time.Second
	)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	retryCount := 0

	for {
		select {
		case <-interrupt:
			log.Println("Interrupt received, shutting down...")
			return
		default:
			retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
			if retryDelay > maxRetryDelay {
				retryDelay = maxRetryDelay
			}

			if retryCount > 0 {
				log.Printf("Retrying connection in %v... (attempt %d/%d)", retryDelay, retryCount+1, maxRetries)
				select {
				case <-time.After(retryDelay):
				case <-interrupt:
					log.Println("Interrupt received during retry wait, shutting down...")
					return
				}
			}

			log.Printf("Connecting to %s", subscribeUrl)

			dialer := *websocket.DefaultDialer
			dialer.HandshakeTimeout = 10 * time.Second
			dialer.Subprotocols = []string{"graphql-transport-ws"}
			header := http.Header{"User-Agent": []string{"energy_collectors/1.0"}}
			c, _, err := dialer.Dial(subscribeUrl, header)
			if err != nil {
				log.Printf("Connection failed: %v", err)
				retryCount++
				if retryCount >= maxRetries {
					log.Printf("Max retries (%d) reached. Giving up.", maxRetries)
					return
				}
				continue
			}

			err = initSubscription(c, apiToken, homeId)
			if err != nil {
				log.Printf("Subscription setup failed: %v", err)
				c.Close()
				retryCount++
				if retryCount >= maxRetries {
					log.Printf("Max retries (%d) reached. Giving up.", maxRetries)
					return
				}
				continue
			}

			log.Println("Connected! Accepting live measurements.")
			retryCount = 0

			connectionBroken := handleConnection(c, interrupt, handleMeasurement)
			c.Close()

			if !connectionBroken {
				return
			}
			log.Println("Connection lost, will retry...")
			retryCount++
		}
	}
}

// initSubscription performs the graphql-transport-ws handshake and
// starts the liveMeasurement subscription.
func initSubscription(c *websocket.Conn, apiToken, homeId string) error {
	initPayload, _ := json.Marshal(map[string]string{"token": apiToken})
	if err := c.WriteJSON(wsMessage{Type: "connection_init", Payload: initPayload}); err != nil {
		return fmt.Errorf("send connection_init: %w", err)
	}

	c.SetReadDeadline(time.Now().Add(10 * time.Second))
	var ack wsMessage
	if err := c.ReadJSON(&ack); err != nil {
		return fmt.Errorf("read connection_ack: %w", err)
	}
	if ack.Type != "connection_ack" {
		return fmt.Errorf("expected connection_ack, got %q", ack.Type)
	}

	subPayload, _ := json.Marshal(map[string]string{
		"query": fmt.Sprintf(liveSubscription, homeId),
	})
	if err := c.WriteJSON(wsMessage{Id: "1", Type: "subscribe", Payload: subPayload}); err != nil {
		return fmt.Errorf("send subscribe: %w", err)
	}
	return nil
}

func handleConnection(
	c *websocket.Conn,
	interrupt chan os.Signal,
	handleMeasurement func(m *LiveMeasurement),
) bool {
	done := make(chan struct{})

	// Expect a packet at least every few seconds; a stalled read
	// deadline means the connection is dead.
	c.SetReadDeadline(time.Now().Add(60 * time.Second))

	go func() {
		defer close(done)
		for {
			var msg wsMessage
			if err := c.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("WebSocket error: %v", err)
				} else {
					log.Printf("Connection closed: %v", err)
				}
				return
			}
			c.SetReadDeadline(time.Now().Add(60 * time.Second))

			switch msg.Type {
			case "next":
				var payload struct {
					Data struct {
						LiveMeasurement *LiveMeasurement `json:"liveMeasurement"`
					} `json:"data"`
				}
				if err := json.Unmarshal(msg.Payload, &payload); err != nil {
					log.Printf("Failed to parse live measurement: %s", msg.Payload)
					continue
				}
				if payload.Data.LiveMeasurement == nil {
					log.Println("No liveMeasurement in data")
					continue
				}
				handleMeasurement(payload.Data.LiveMeasurement)
			case "ping":
				c.WriteJSON(wsMessage{Type: "pong"})
			case "error", "complete":
				log.Printf("Subscription ended: %s %s", msg.Type, msg.Payload)
				return
			}
		}
	}()

	select {
	case <-done:
		// Connection broke
		return true
	case <-interrupt:
		log.Println("Interrupt received, closing connection...")

		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Println("Error sending close message:", err)
		}

		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return false
	}
}

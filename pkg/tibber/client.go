// Client for the Tibber API: GraphQL queries over HTTP for price and
// consumption history, and the realtime liveMeasurement subscription
// over websocket.
package tibber

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const DefaultEndpoint = "https://api.tibber.com/v1-beta/gql"

// Client issues GraphQL queries against the Tibber HTTP endpoint.
type Client struct {
	Endpoint string
	ApiToken string
	HTTP     *http.Client
}

func NewClient(apiToken string) *Client {
	return &Client{
		Endpoint: DefaultEndpoint,
		ApiToken: apiToken,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
	}
}

type graphqlRequest struct {
	Query string `json:"query"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// query posts one GraphQL query and unmarshals the data object into out.
func (c *Client) query(query string, out interface{}) error {
	body, err := json.Marshal(graphqlRequest{Query: query})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.ApiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || len(envelope.Errors) > 0 {
		return fmt.Errorf("failed to fetch data: %s", raw)
	}
	return json.Unmarshal(envelope.Data, out)
}

// EncodeCursor turns an ISO timestamp into the base64 pagination cursor
// the API expects.
func EncodeCursor(isoTimestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(isoTimestamp))
}

type pageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
	Count       int    `json:"count"`
}

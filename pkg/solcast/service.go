// Client for the Solcast rooftop forecast API.
package solcast

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Forecast is one half-hour forecast slot. PeriodStart is derived by
// subtracting the slot duration from the API's period_end.
type Forecast struct {
	PeriodStart  time.Time
	PeriodEnd    time.Time
	PvEstimate   float64
	PvEstimate10 float64
	PvEstimate90 float64
}

type Client struct {
	Host  string
	Token string
	Site  string
	HTTP  *http.Client
}

func NewClient(host, token, site string) *Client {
	return &Client{
		Host:  host,
		Token: token,
		Site:  site,
		HTTP:  &http.Client{Timeout: 30 * time.Second},
	}
}

type rawForecast struct {
	PvEstimate   float64 `json:"pv_estimate"`
	PvEstimate10 float64 `json:"pv_estimate10"`
	PvEstimate90 float64 `json:"pv_estimate90"`
	PeriodEnd    string  `json:"period_end"`
	Period       string  `json:"period"`
}

// FetchForecasts fetches the rooftop forecast for the configured site.
func (c *Client) FetchForecasts() ([]Forecast, error) {
	url := fmt.Sprintf("%s/rooftop_sites/%s/forecasts?period=PT30M&format=json", c.Host, c.Site)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("solcast returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Forecasts []rawForecast `json:"forecasts"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}

	forecasts := make([]Forecast, 0, len(payload.Forecasts))
	for _, rf := range payload.Forecasts {
		f, err := rf.parse()
		if err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, nil
}

func (rf rawForecast) parse() (Forecast, error) {
	end, err := time.Parse(time.RFC3339, strings.Replace(rf.PeriodEnd, ".0000000Z", "Z", 1))
	if err != nil {
		return Forecast{}, fmt.Errorf("parse period_end %q: %w", rf.PeriodEnd, err)
	}
	duration, err := parsePeriod(rf.Period)
	if err != nil {
		return Forecast{}, err
	}
	return Forecast{
		PeriodStart:  end.Add(-duration),
		PeriodEnd:    end,
		PvEstimate:   rf.PvEstimate,
		PvEstimate10: rf.PvEstimate10,
		PvEstimate90: rf.PvEstimate90,
	}, nil
}

// parsePeriod handles the ISO 8601 minute durations the API emits,
// e.g. "PT30M".
func parsePeriod(period string) (time.Duration, error) {
	if !strings.HasPrefix(period, "PT") || !strings.HasSuffix(period, "M") {
		return 0, fmt.Errorf("unexpected period format %q", period)
	}
	minutes, err := strconv.Atoi(period[2 : len(period)-1])
	if err != nil {
		return 0, fmt.Errorf("parse period %q: %w", period, err)
	}
	return time.Duration(minutes) * time.Minute, nil
}

package solcast

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchForecasts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rooftop_sites/site-1/forecasts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, `{"forecasts":[
			{"pv_estimate":1.5,"pv_estimate10":0.9,"pv_estimate90":2.1,
			 "period_end":"2024-06-01T10:30:00.0000000Z","period":"PT30M"},
			{"pv_estimate":1.8,"pv_estimate10":1.1,"pv_estimate90":2.4,
			 "period_end":"2024-06-01T11:00:00.0000000Z","period":"PT30M"}
		]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", "site-1")
	forecasts, err := client.FetchForecasts()
	if err != nil {
		t.Fatalf("FetchForecasts() err=%v", err)
	}
	if len(forecasts) != 2 {
		t.Fatalf("got %d forecasts, want 2", len(forecasts))
	}

	wantStart := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if !forecasts[0].PeriodStart.Equal(wantStart) {
		t.Errorf("period start = %v, want %v", forecasts[0].PeriodStart, wantStart)
	}
	if forecasts[0].PvEstimate != 1.5 {
		t.Errorf("pv estimate = %v, want 1.5", forecasts[0].PvEstimate)
	}
}

func TestFetchForecasts_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "tok", "site-1")
	if _, err := client.FetchForecasts(); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestParsePeriod(t *testing.T) {
	d, err := parsePeriod("PT30M")
	if err != nil {
		t.Fatalf("parsePeriod() err=%v", err)
	}
	if d != 30*time.Minute {
		t.Errorf("duration = %v, want 30m", d)
	}
	if _, err := parsePeriod("P1D"); err == nil {
		t.Error("expected error for unsupported period format")
	}
}

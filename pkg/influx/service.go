// Thin wrapper around the InfluxDB v2 client shared by all collectors.
// Write failures never corrupt collector state; callers hand failed
// points to the spool and move on.
package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Writer writes points into one bucket of one InfluxDB instance.
type Writer struct {
	client   influxdb2.Client
	org      string
	bucket   string
	writeAPI api.WriteAPIBlocking
}

func NewWriter(url, token, org, bucket string) *Writer {
	client := influxdb2.NewClient(url, token)
	return &Writer{
		client:   client,
		org:      org,
		bucket:   bucket,
		writeAPI: client.WriteAPIBlocking(org, bucket),
	}
}

func (w *Writer) Close() {
	w.client.Close()
}

// EnsureBucket verifies the target bucket exists. Collectors refuse to
// run against a missing bucket instead of creating one implicitly.
func (w *Writer) EnsureBucket(ctx context.Context) error {
	bucket, err := w.client.BucketsAPI().FindBucketByName(ctx, w.bucket)
	if err != nil {
		return fmt.Errorf("look up bucket %s: %w", w.bucket, err)
	}
	if bucket == nil {
		return fmt.Errorf("bucket %s does not exist", w.bucket)
	}
	return nil
}

// WritePoint writes one point.
func (w *Writer) WritePoint(ctx context.Context, measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) error {
	p := influxdb2.NewPoint(measurement, tags, fields, ts)
	return w.writeAPI.WritePoint(ctx, p)
}

// WriteRecord writes one point already rendered as line protocol.
// Used when draining the spool.
func (w *Writer) WriteRecord(ctx context.Context, line string) error {
	return w.writeAPI.WriteRecord(ctx, line)
}

// Line renders a point as line protocol for spooling.
func Line(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) string {
	p := influxdb2.NewPoint(measurement, tags, fields, ts)
	return write.PointToLineProtocol(p, time.Nanosecond)
}

// QueryFirstString runs a flux query and returns the first value of
// the given column as a string, or "" when the query yields nothing.
func (w *Writer) QueryFirstString(ctx context.Context, flux, column string) (string, error) {
	result, err := w.client.QueryAPI(w.org).Query(ctx, flux)
	if err != nil {
		return "", err
	}
	defer result.Close()
	for result.Next() {
		if v, ok := result.Record().ValueByKey(column).(string); ok {
			return v, nil
		}
		if v, ok := result.Record().Value().(string); ok {
			return v, nil
		}
	}
	return "", result.Err()
}

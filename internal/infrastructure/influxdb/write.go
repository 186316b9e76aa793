package influxdb

import (
	"context"
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/sqlbridge/internal/bridge"
)

// measurementBridgeStats is the measurement holding worker statistics.
const measurementBridgeStats = "bridge_stats"

// WriteStats records a worker statistics snapshot as one bridge_stats point.
//
// Tags: instance, bridge, state. Fields: every counter plus queued and
// completed. The write is non-blocking; points are batched and async write
// failures go to the SetOnError callback.
func (c *Client) WriteStats(ctx context.Context, stats bridge.Stats) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.writer.WritePoint(statsPoint(c.instance, stats, time.Now()))
	return nil
}

// statsPoint builds the bridge_stats point for a snapshot.
func statsPoint(instance string, stats bridge.Stats, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementBridgeStats,
		map[string]string{
			"instance": instance,
			"bridge":   stats.Name,
			"state":    string(stats.State),
		},
		map[string]interface{}{
			"queued":    int64(stats.Queued),
			"submitted": stats.Submitted,
			"shared":    stats.Shared,
			"exclusive": stats.Exclusive,
			"completed": stats.Completed(),
			"failed":    stats.Failed,
			"abandoned": stats.Abandoned,
			"rejected":  stats.Rejected,
			"dropped":   stats.Dropped,
		},
		ts,
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Example:
//
//	client.WritePoint("migrations",
//	    map[string]string{"bridge": "orders"},
//	    map[string]interface{}{"applied": 3})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, time.Now()))
}

//go:build integration

package mqtt

import (
	"context"
	"testing"

	"github.com/nerrad567/sqlbridge/internal/bridge"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_ConnectPublishClose(t *testing.T) {
	client, err := Connect(testConfig(), "integration")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false, want true")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	stats := bridge.Stats{Name: "integration", State: bridge.StateRunning, Shared: 1}
	if err := client.PublishStats(context.Background(), stats); err != nil {
		t.Errorf("PublishStats() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close(), want false")
	}
}

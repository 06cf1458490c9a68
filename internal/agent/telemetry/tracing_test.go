package telemetry

import (
	"context"
	"testing"

	"github.com/mohammad-safakhou/todoagent/config"
)

func TestSetupTracingDisabled(t *testing.T) {
	shutdown := SetupTracing(context.Background(), config.TelemetryConfig{Enabled: false})
	if shutdown == nil {
		t.Fatal("expected a no-op shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	cfg := config.TelemetryConfig{Enabled: true, ServiceName: "todo-agent"}
	shutdown := SetupTracing(context.Background(), cfg)
	if shutdown == nil {
		t.Fatal("expected a no-op shutdown function when no endpoint is configured")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
}

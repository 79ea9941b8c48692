package notification

import (
	"strings"
	"testing"
	"time"

	"tableside/internal/models"
)

func TestFormatNotification(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	ready := ts.Add(20 * time.Minute)

	tests := []struct {
		name     string
		event    models.StatusUpdateMessage
		contains []string
	}{
		{
			name: "confirmed with estimate",
			event: models.StatusUpdateMessage{
				OrderNumber:      "ORD_20250601_001",
				TableID:          "T4",
				NewStatus:        models.StatusConfirmed,
				Timestamp:        ts,
				EstimatedReadyAt: &ready,
			},
			contains: []string{"ORD_20250601_001", "T4", "confirmed", "12:50"},
		},
		{
			name: "confirmed without estimate",
			event: models.StatusUpdateMessage{
				OrderNumber: "ORD_20250601_002",
				TableID:     "T1",
				NewStatus:   models.StatusConfirmed,
				Timestamp:   ts,
			},
			contains: []string{"ORD_20250601_002", "confirmed"},
		},
		{
			name: "ready",
			event: models.StatusUpdateMessage{
				OrderNumber: "ORD_20250601_003",
				TableID:     "T2",
				NewStatus:   models.StatusReady,
				Timestamp:   ts,
			},
			contains: []string{"ready", "T2"},
		},
		{
			name: "cancelled names the actor",
			event: models.StatusUpdateMessage{
				OrderNumber: "ORD_20250601_004",
				NewStatus:   models.StatusCancelled,
				ChangedBy:   "admin-service",
				Timestamp:   ts,
			},
			contains: []string{"cancelled", "admin-service"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatNotification(&tt.event)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("notification %q missing %q", got, want)
				}
			}
		})
	}
}

package models

import (
	"testing"
	"time"
)

func TestOrderStatusNext(t *testing.T) {
	tests := []struct {
		name   string
		status OrderStatus
		want   OrderStatus
		ok     bool
	}{
		{"pending advances to confirmed", StatusPending, StatusConfirmed, true},
		{"confirmed advances to preparing", StatusConfirmed, StatusPreparing, true},
		{"preparing advances to ready", StatusPreparing, StatusReady, true},
		{"ready advances to delivered", StatusReady, StatusDelivered, true},
		{"delivered is terminal", StatusDelivered, StatusDelivered, false},
		{"cancelled is terminal", StatusCancelled, StatusCancelled, false},
		{"unknown status does not advance", OrderStatus("bogus"), OrderStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.status.Next()
			if got != tt.want || ok != tt.ok {
				t.Errorf("Next() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestOrderStatusNeverLeavesTerminal(t *testing.T) {
	for _, terminal := range []OrderStatus{StatusDelivered, StatusCancelled} {
		status := terminal
		for i := 0; i < 5; i++ {
			next, ok := status.Next()
			if ok {
				t.Fatalf("%s advanced to %s, terminal states must not move", terminal, next)
			}
			status = next
		}
		if status != terminal {
			t.Errorf("terminal status mutated from %s to %s", terminal, status)
		}
	}
}

func TestOrderStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"forward step allowed", StatusPending, StatusConfirmed, true},
		{"skipping a step rejected", StatusPending, StatusPreparing, false},
		{"backward step rejected", StatusReady, StatusPreparing, false},
		{"cancel from pending", StatusPending, StatusCancelled, true},
		{"cancel from ready", StatusReady, StatusCancelled, true},
		{"cancel from delivered rejected", StatusDelivered, StatusCancelled, false},
		{"leaving cancelled rejected", StatusCancelled, StatusConfirmed, false},
		{"unknown target rejected", StatusPending, OrderStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestGenerateOrderNumber(t *testing.T) {
	date := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	if got := GenerateOrderNumber(date, 7); got != "ORD_20250314_007" {
		t.Errorf("GenerateOrderNumber = %q, want ORD_20250314_007", got)
	}
}

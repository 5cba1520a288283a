package device

import (
	"testing"
	"time"
)

func TestIsOnline(t *testing.T) {
	past := func(d time.Duration) *time.Time {
		ts := time.Now().Add(-d)
		return &ts
	}

	tests := []struct {
		name      string
		heartbeat *time.Time
		want      bool
	}{
		{"recent heartbeat", past(time.Minute), true},
		{"heartbeat just inside the window", past(OnlineWindow - time.Second), true},
		{"heartbeat outside the window", past(OnlineWindow + time.Second), false},
		{"never seen", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Device{Connection: ConnectionStatus{LastHeartbeat: tt.heartbeat}}
			if got := d.IsOnline(); got != tt.want {
				t.Errorf("IsOnline() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	brand := "Samsung"
	model := "Galaxy A14"

	tests := []struct {
		name   string
		device Device
		want   string
	}{
		{"brand and model", Device{Brand: &brand, Model: &model, DeviceID: "DEV-1"}, "Samsung Galaxy A14"},
		{"model only", Device{Model: &model, DeviceID: "DEV-1"}, "Galaxy A14"},
		{"brand only", Device{Brand: &brand, DeviceID: "DEV-1"}, "Samsung"},
		{"neither", Device{DeviceID: "DEV-1"}, "DEV-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

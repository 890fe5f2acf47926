package mqtt

import (
	"strings"
	"testing"
)

func TestTopics_Firmware(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "shelf data", got: topics.ShelfData(), expected: "shelf/data"},
		{name: "doors control", got: topics.DoorsControl(), expected: "aux/control/doors"},
		{name: "hatch control", got: topics.HatchControl(), expected: "aux/control/hatch"},
		{name: "doors status", got: topics.DoorsStatus(), expected: "aux/status/doors"},
		{name: "hatch status", got: topics.HatchStatus(), expected: "aux/status/hatch"},
		{name: "all aux status", got: topics.AllAuxStatus(), expected: "aux/status/+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestTopics_Core(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{name: "core event", got: topics.CoreEvent("cart_updated"), expected: "cabinet/core/event/cart_updated"},
		{name: "core alert", got: topics.CoreAlert("shelf-stale"), expected: "cabinet/core/alert/shelf-stale"},
		{name: "shelf state", got: topics.CoreShelfState("AA:BB:CC:DD:EE:01"), expected: "cabinet/core/shelf/AA:BB:CC:DD:EE:01/state"},
		{name: "system status", got: topics.SystemStatus(), expected: "cabinet/system/status"},
		{name: "all core events", got: topics.AllCoreEvents(), expected: "cabinet/core/event/+"},
		{name: "all core alerts", got: topics.AllCoreAlerts(), expected: "cabinet/core/alert/+"},
		{name: "all shelf states", got: topics.AllCoreShelfStates(), expected: "cabinet/core/shelf/+/state"},
		{name: "everything", got: topics.AllCabinetTopics(), expected: "cabinet/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %q, want %q", tt.got, tt.expected)
			}
		})
	}
}

func TestBuildStatusPayloads(t *testing.T) {
	online := buildOnlinePayload("cabinet-core")
	if !strings.Contains(online, `"status":"online"`) {
		t.Errorf("online payload missing status field: %s", online)
	}
	if !strings.Contains(online, `"client_id":"cabinet-core"`) {
		t.Errorf("online payload missing client_id: %s", online)
	}

	offline := buildOfflinePayload("cabinet-core")
	if !strings.Contains(offline, `"status":"offline"`) {
		t.Errorf("offline payload missing status field: %s", offline)
	}
	if !strings.Contains(offline, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload missing reason: %s", offline)
	}
}

package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	State         string     `json:"state"`
	Amount        uint8      `json:"amount"`
	Unit          string     `json:"unit"`
	Grinding      bool       `json:"grinding"`
	Display       string     `json:"display"`
	LastReason    string     `json:"last_reason,omitempty"`
	LastChange    string     `json:"last_change,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	GrindsStarted   int `json:"grinds_started"`
	GrindsCompleted int `json:"grinds_completed"`
	GrindsStopped   int `json:"grinds_stopped"`
	Lockouts        int `json:"lockouts"`
	Sleeps          int `json:"sleeps"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Variant      string `json:"variant"`
	Lockout      bool   `json:"lockout"`
	PollMs       int64  `json:"poll_ms"`
	DebounceMs   int64  `json:"debounce_ms"`
	SleepMs      int64  `json:"sleep_ms"`
	GrindLimitMs int64  `json:"grind_limit_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPAddr     string `json:"http_addr"`
	BootID       string `json:"boot_id,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         snap.State.String(),
		Amount:        snap.Amount,
		Unit:          string(snap.Unit),
		Grinding:      snap.Actuator,
		Display:       snap.Display,
		LastReason:    snap.LastReason,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			GrindsStarted:   snap.Counts.GrindsStarted,
			GrindsCompleted: snap.Counts.GrindsCompleted,
			GrindsStopped:   snap.Counts.GrindsStopped,
			Lockouts:        snap.Counts.Lockouts,
			Sleeps:          snap.Counts.Sleeps,
		},
		Config: ConfigJSON(snap.Config),
	}
	if !snap.LastChange.IsZero() {
		inner.LastChange = snap.LastChange.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/grinder/internal/logic"
	"github.com/sweeney/grinder/internal/status"
)

var start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*httptest.Server, *Server, *status.Tracker) {
	t.Helper()
	cfg := status.Config{
		Variant:      "time",
		Lockout:      true,
		PollMs:       5,
		DebounceMs:   10,
		SleepMs:      15000,
		GrindLimitMs: 30000,
		HeartbeatMs:  900000,
		Broker:       "tcp://192.168.1.200:1883",
		HTTPAddr:     ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, nil)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(func() {
		srv.hub.Close()
		ts.Close()
	})
	return ts, srv, tr
}

// wake steps a fresh machine into SELECT and records it on the tracker.
func wake(tr *status.Tracker) {
	m := logic.NewMachine(logic.MachineConfig{Variant: logic.Variant{Mode: logic.ModeTime}}, nil, start)
	out := m.Step(logic.Input{Now: start, Events: logic.Events{Clockwise: true}})
	tr.Update(m, out)
	for _, x := range out.Transitions {
		tr.Record(x)
	}
}

func getStatus(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}
	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, _, tr := newTestServer(t)
	wake(tr)
	tr.SetMQTTConnected(true)

	sj := getStatus(t, ts.URL)
	if sj.Status.State != "SELECT" {
		t.Errorf("State: got %q, want SELECT", sj.Status.State)
	}
	if sj.Status.Display != "10s" {
		t.Errorf("Display: got %q, want 10s", sj.Status.Display)
	}
	if sj.Status.LastReason != "WAKE" {
		t.Errorf("LastReason: got %q, want WAKE", sj.Status.LastReason)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.GrindLimitMs != 30000 {
		t.Errorf("Config.GrindLimitMs: got %d, want 30000", sj.Status.Config.GrindLimitMs)
	}
}

func TestJSONInitialState(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getStatus(t, ts.URL)
	if sj.Status.State != "SLEEP" {
		t.Errorf("State before first cycle: got %q, want SLEEP", sj.Status.State)
	}
	if sj.Status.LastReason != "" {
		t.Errorf("expected no last reason, got %q", sj.Status.LastReason)
	}
}

func TestHTMLEndpoint(t *testing.T) {
	ts, _, tr := newTestServer(t)
	wake(tr)

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q, want text/html", path, ct)
		}
		if !strings.Contains(string(body), `<td id="state" class="SELECT">SELECT</td>`) {
			t.Errorf("%s: expected rendered state in body", path)
		}
		if !strings.Contains(string(body), "time + lockout") {
			t.Errorf("%s: expected variant in body", path)
		}
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readStatus(t *testing.T, conn *websocket.Conn) status.StatusJSON {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sj status.StatusJSON
	if err := conn.ReadJSON(&sj); err != nil {
		t.Fatalf("read ws frame: %v", err)
	}
	return sj
}

func TestWebsocketInitialAndPublish(t *testing.T) {
	ts, srv, tr := newTestServer(t)
	conn := dialWS(t, ts)

	if sj := readStatus(t, conn); sj.Status.State != "SLEEP" {
		t.Errorf("initial frame: got %q, want SLEEP", sj.Status.State)
	}
	if n := srv.Clients(); n != 1 {
		t.Errorf("expected 1 client, got %d", n)
	}

	wake(tr)
	srv.Publish()

	if sj := readStatus(t, conn); sj.Status.State != "SELECT" {
		t.Errorf("published frame: got %q, want SELECT", sj.Status.State)
	}
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	ts, srv, _ := newTestServer(t)
	conn := dialWS(t, ts)
	readStatus(t, conn)

	srv.hub.Close()
	if n := srv.Clients(); n != 0 {
		t.Errorf("expected 0 clients after close, got %d", n)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected read error after hub close")
	}
}

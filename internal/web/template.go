package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/grinder/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"unit": func(b byte) string { return string(b) },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Grinder</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.GRINDING { color: green; font-weight: bold; }
.LOCKOUT { color: red; font-weight: bold; }
.SLEEP { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; background: orange; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
</style>
</head>
<body>
<h1>Grinder<span id="live-dot" class="live-dot" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>State</th><td id="state" class="{{.State}}">{{.State}}</td></tr>
<tr><th>Display</th><td id="display">{{.Display}}</td></tr>
<tr><th>Amount</th><td id="amount">{{.Amount}}{{unit .Unit}}</td></tr>
<tr><th>Motor</th><td id="motor">{{if .Actuator}}on{{else}}off{{end}}</td></tr>
<tr><th>Last change</th><td id="last">{{if .LastReason}}{{.LastReason}} at {{.LastChange.UTC.Format "15:04:05"}}{{else}}none{{end}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Grinds started</th><td>{{.Counts.GrindsStarted}}</td></tr>
<tr><th>Completed</th><td>{{.Counts.GrindsCompleted}}</td></tr>
<tr><th>Stopped</th><td>{{.Counts.GrindsStopped}}</td></tr>
<tr><th>Lockouts</th><td>{{.Counts.Lockouts}}</td></tr>
<tr><th>Sleeps</th><td>{{.Counts.Sleeps}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Variant</th><td>{{.Config.Variant}}{{if .Config.Lockout}} + lockout{{end}}</td></tr>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>Sleep after</th><td>{{.Config.SleepMs}}ms</td></tr>
<tr><th>Grind limit</th><td>{{.Config.GrindLimitMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");
  function set(id, text) { document.getElementById(id).textContent = text; }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { dot.className = "live-dot ok"; dot.title = "live"; };
    ws.onclose = function() {
      dot.className = "live-dot err"; dot.title = "offline";
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        var st = document.getElementById("state");
        st.textContent = s.state;
        st.className = s.state;
        set("display", s.display);
        set("amount", s.amount + s.unit);
        set("motor", s.grinding ? "on" : "off");
        if (s.last_reason) { set("last", s.last_reason + " at " + s.last_change.substr(11, 8)); }
      } catch (e) {}
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}

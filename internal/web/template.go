package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/power-supervisor/internal/status"
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
	"stateClass": func(s string) string {
		return strings.ToLower(s)
	},
	"level": func(high bool) string {
		if high {
			return "HIGH"
		}
		return "LOW"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Power Supervisor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.idle { color: green; font-weight: bold; }
.boot { color: #c90; font-weight: bold; }
.shutdown { color: #c60; font-weight: bold; }
.poweroff { color: #888; font-weight: bold; }
.unknown { color: red; font-weight: bold; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Power Supervisor</h1>

<h2>State</h2>
<table>
<tr><th>State</th><td class="{{stateClass (printf "%s" .State)}}">{{.State}}</td></tr>
{{if or (eq (printf "%s" .State) "BOOT") (eq (printf "%s" .State) "SHUTDOWN")}}<tr><th>Elapsed</th><td>{{.ElapsedS}}s</td></tr>{{end}}
<tr><th>In state for</th><td>{{uptime .TimeInStateDur}}</td></tr>
{{if .LastTrigger}}<tr><th>Last trigger</th><td>{{.LastTrigger}}</td></tr>{{end}}
</table>

<h2>Lines</h2>
<table>
<tr><th>Power enable</th><td>{{level .PowerEnable}}{{if .PowerEnable}} (target power cut){{else}} (target powered){{end}}</td></tr>
<tr><th>Signal out</th><td>{{level .SignalOut}}{{if .SignalOut}} (shutdown requested){{end}}</td></tr>
<tr><th>LED</th><td>{{level .LED}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Boots</th><td>{{.Counts.Boots}}</td></tr>
<tr><th>Shutdowns</th><td>{{.Counts.Shutdowns}}</td></tr>
<tr><th>Power offs</th><td>{{.Counts.PowerOffs}}</td></tr>
<tr><th>Button presses</th><td>{{.Counts.ButtonPresses}}</td></tr>
<tr><th>Alive edges</th><td>{{.Counts.AliveEdges}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Boot timeout</th><td>{{.Config.BootTimeoutS}}s</td></tr>
<tr><th>Shutdown timeout</th><td>{{.Config.ShutdownTimeoutS}}s</td></tr>
<tr><th>Boot tick</th><td>{{.Config.BootTickMs}}ms</td></tr>
<tr><th>Shutdown tick</th><td>{{.Config.ShutdownTickMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Pins (BCM)</th><td>btn={{.Config.PinButton}} alive={{.Config.PinAlive}} pwr={{.Config.PinPower}} sig={{.Config.PinSignal}} led={{.Config.PinLED}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime()/TimeInState() methods but the template needs
	// Duration fields.
	data := struct {
		status.Snapshot
		Uptime         time.Duration
		TimeInStateDur time.Duration
	}{
		Snapshot:       snap,
		Uptime:         snap.Uptime(),
		TimeInStateDur: snap.TimeInState(),
	}
	indexTmpl.Execute(w, data)
}

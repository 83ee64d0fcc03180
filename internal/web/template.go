package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/fill-controller/internal/logic"
	"github.com/sweeney/fill-controller/internal/status"
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
	"kg": func(w float64) string {
		return fmt.Sprintf("%.2f kg", w)
	},
	"modeClass": func(m logic.Mode) string {
		switch {
		case m == "":
			return "unknown"
		case m.Filling():
			return "filling"
		}
		return "idle"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Fill Controller</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.filling { color: green; font-weight: bold; }
.idle { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Fill Controller</h1>

<h2>State</h2>
<table>
<tr><th>Mode</th><td id="mode" class="{{modeClass .Mode}}">{{if .Mode}}{{.Mode}}{{else}}UNKNOWN{{end}}</td></tr>
<tr><th>Weight</th><td id="weight">{{kg .Weight}}</td></tr>
{{if .Screen}}<tr><th>Display</th><td id="screen">{{.Screen}}</td></tr>{{end}}
<tr><th>Valve</th><td id="relay" class="{{if .Relay}}filling{{else}}idle{{end}}">{{if .Relay}}open{{else}}closed{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Fill Counts</h2>
<table>
<tr><th>Started</th><td>{{.Counts.Started}}</td></tr>
<tr><th>Complete</th><td>{{.Counts.Complete}}</td></tr>
<tr><th>Aborted</th><td>{{.Counts.Aborted}}</td></tr>
<tr><th>Tares</th><td>{{.Counts.Tares}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Keypad</th><td>{{.Config.Keypad}}</td></tr>
<tr><th>Stop 20L</th><td>{{kg .Config.Stop20}}</td></tr>
<tr><th>Stop 25L</th><td>{{kg .Config.Stop25}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Uptime shadows the Snapshot method so the template sees a plain Duration.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}

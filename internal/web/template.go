package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/sun-timer/internal/astro"
	"github.com/sweeney/sun-timer/internal/logic"
	"github.com/sweeney/sun-timer/internal/status"
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
	"human": logic.HumanTime,
	"clock": func(minute int) string {
		return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Sun Timer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.yellow { color: #b8860b; }
.red { color: red; }
.green { color: green; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Sun Timer</h1>

<h2>State</h2>
<table>
<tr><th>Output</th><td id="state" class="{{if eq .State "ON"}}on{{else if eq .State "OFF"}}off{{else}}unknown{{end}}">{{.State}}</td></tr>
<tr><th>Status</th><td id="status" class="{{.Runner.Status.Fill}}">{{if .Runner.Status.Text}}{{.Runner.Status.Text}}{{else}}-{{end}}</td></tr>
<tr><th>Mode</th><td>{{if .Runner.Mode}}{{.Runner.Mode}}{{else}}auto{{end}}</td></tr>
<tr><th>Schedule</th><td>{{if .Runner.AutoOn}}on{{else}}off{{end}}</td></tr>
{{if .Ready}}<tr><th>Next change</th><td>{{human .Runner.NextChange}}</td></tr>
{{if gt .Runner.OverrideLeft 0.0}}<tr><th>Override left</th><td>{{human .Runner.OverrideLeft}}</td></tr>{{end}}
<tr><th>Today</th><td>{{clock .Runner.ActualStart}} - {{clock .Runner.ActualEnd}} ({{.Runner.OperationToday}})</td></tr>
<tr><th>Day allowed</th><td>{{if .Runner.DayAllowed}}yes{{else}}no{{end}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Bus</th><td class="{{if .BusConnected}}connected{{else}}disconnected{{end}}">{{if .BusConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
<tr><th>Topic</th><td>{{.Config.Topic}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Switched ON</th><td>{{.Runner.Counts.On}}</td></tr>
<tr><th>Switched OFF</th><td>{{.Runner.Counts.Off}}</td></tr>
<tr><th>Published</th><td>{{.Publishes}}</td></tr>
</table>
{{if .Events}}
<h2>Events</h2>
<table>
{{range .Events}}<tr><th>{{.Label}}</th><td>{{.Time.Format "15:04"}}</td></tr>
{{end}}</table>
{{end}}
<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Position</th><td>{{.Config.Latitude}}, {{.Config.Longitude}}</td></tr>
<tr><th>Start / End</th><td>{{.Config.Start}} / {{.Config.End}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/events.json">Events</a> | <a href="/metrics">Metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, events []astro.Entry) {
	data := struct {
		status.Snapshot
		State  string
		Uptime time.Duration
		Events []astro.Entry
	}{
		Snapshot: snap,
		State:    snap.StateLabel(),
		Uptime:   snap.Uptime(),
		Events:   events,
	}
	indexTmpl.Execute(w, data)
}

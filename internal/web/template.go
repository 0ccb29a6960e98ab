package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/honey-warmer/internal/status"
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
	"stageOrUnknown": func(s string) string {
		if s == "" {
			return "UNKNOWN"
		}
		return s
	},
	"onOff": status.OnOff,
	"onOffClass": func(on bool) string {
		if on {
			return "on"
		}
		return "off"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Honey Warmer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.fault { color: red; font-weight: bold; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>Honey Warmer<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>State</h2>
<table>
<tr><th>Controller</th><td id="state" class="{{if eq .State "SHUTDOWN"}}fault{{else}}on{{end}}">{{.State}}</td></tr>
{{if .Fault}}<tr><th>Fault</th><td class="fault">{{.Fault}} at {{.FaultTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>{{end}}
<tr><th>Temperature</th><td id="temp">{{if .HasReading}}{{printf "%.1f" .TemperatureF}} &deg;F{{else}}-{{end}}</td></tr>
<tr><th>Humidity</th><td id="humidity">{{if .HasReading}}{{printf "%.1f" .Humidity}} %{{else}}-{{end}}</td></tr>
<tr><th>Last reading</th><td id="last-reading">{{if .HasReading}}{{.LastReading.UTC.Format "2006-01-02T15:04:05Z"}}{{else}}never{{end}}</td></tr>
<tr><th>Stage</th><td id="stage">{{stageOrUnknown (printf "%s" .Stage)}}</td></tr>
</table>

<h2>Outputs</h2>
<table>
<tr><th>Plate 1</th><td id="plate1" class="{{onOffClass .Outputs.Plate1}}">{{onOff .Outputs.Plate1}}</td></tr>
<tr><th>Plate 2</th><td id="plate2" class="{{onOffClass .Outputs.Plate2}}">{{onOff .Outputs.Plate2}}</td></tr>
<tr><th>Fan</th><td id="fan" class="{{onOffClass .Outputs.Fan}}">{{onOff .Outputs.Fan}}</td></tr>
</table>

<h2>Gates</h2>
<table>
<tr><th>Gate</th><th>Rising / Falling</th><th>Active</th></tr>
{{range .Gates}}<tr><td>{{.Name}}</td><td>{{printf "%.1f" .Rising}} / {{printf "%.1f" .Falling}}</td><td>{{if .Active}}yes{{else}}no{{end}}{{if .Armed}} (armed){{end}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Cycles</th><td id="cycles">{{.Counts.Cycles}}</td></tr>
<tr><th>Sensor misses</th><td id="misses">{{.Counts.SensorMisses}}</td></tr>
<tr><th>Output errors</th><td>{{.Counts.OutputErrors}}</td></tr>
<tr><th>Publish errors</th><td>{{.Counts.PublishErrors}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Target</th><td>{{printf "%.1f" .Config.TargetTempF}} &deg;F &plusmn; {{printf "%.1f" .Config.ToleranceF}}</td></tr>
<tr><th>Fan on</th><td>{{printf "%.1f" .Config.FanOnTempF}} &deg;F</td></tr>
<tr><th>Sample period</th><td>{{.Config.SamplePeriodMs}}ms</td></tr>
<tr><th>Read deadline</th><td>{{.Config.ReadTimeoutMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if le .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Sensor</th><td>{{.Config.SensorDriver}}</td></tr>
<tr><th>Outputs</th><td>{{.Config.OutputDriver}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function setText(id, text) {
    document.getElementById(id).textContent = text;
  }

  function setOutput(id, state) {
    var el = document.getElementById(id);
    el.textContent = state;
    el.className = state === "ON" ? "on" : "off";
  }

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");

    ws.onopen = function() { setDot("ok", "live"); };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
    ws.onmessage = function(ev) {
      try {
        var s = JSON.parse(ev.data).status;
        setText("state", s.state);
        setText("stage", s.stage);
        if (s.reading) {
          setText("temp", s.reading.temperature_f.toFixed(1) + " \u00b0F");
          setText("humidity", s.reading.humidity.toFixed(1) + " %");
          setText("last-reading", s.reading.timestamp);
        }
        setOutput("plate1", s.outputs.plate1);
        setOutput("plate2", s.outputs.plate2);
        setOutput("fan", s.outputs.fan);
        setText("cycles", s.counts.cycles);
        setText("misses", s.counts.sensor_misses);
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

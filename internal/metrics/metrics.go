// Package metrics exposes control loop state as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/honey-warmer/internal/gpio"
	"github.com/sweeney/honey-warmer/internal/logic"
)

const metricPrefix = "honey_warmer_"

// Metrics bundles the controller metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	TemperatureF   prometheus.Gauge
	Humidity       prometheus.Gauge
	Output         *prometheus.GaugeVec
	Stage          prometheus.Gauge
	Shutdown       prometheus.Gauge
	CyclesTotal    prometheus.Counter
	SensorMisses   prometheus.Counter
	SensorTimeouts prometheus.Counter
	OutputErrors   prometheus.Counter
	PublishErrors  *prometheus.CounterVec
	ReadDuration   prometheus.Histogram
}

// New constructs the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TemperatureF: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "temperature_fahrenheit",
			Help: "Last valid temperature reading in Fahrenheit",
		}),
		Humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "humidity_percent",
			Help: "Last valid relative humidity reading",
		}),
		Output: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "output_on",
				Help: "Relay level by channel (1 = on)",
			},
			[]string{"channel"},
		),
		Stage: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "heating_stage",
			Help: "Number of heating plates energized",
		}),
		Shutdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "shutdown",
			Help: "1 once the controller has latched into fail-safe shutdown",
		}),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "cycles_total",
			Help: "Total completed control cycles",
		}),
		SensorMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "sensor_misses_total",
			Help: "Total sensor reads that returned no valid reading",
		}),
		SensorTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "sensor_timeouts_total",
			Help: "Total guarded reads that exhausted their deadline",
		}),
		OutputErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "output_errors_total",
			Help: "Total failed relay writes",
		}),
		PublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "publish_errors_total",
				Help: "Total failed MQTT publishes by kind",
			},
			[]string{"kind"},
		),
		ReadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "guarded_read_duration_seconds",
			Help:    "Time spent obtaining a valid reading, retries included",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
	}
	reg.MustRegister(
		m.TemperatureF,
		m.Humidity,
		m.Output,
		m.Stage,
		m.Shutdown,
		m.CyclesTotal,
		m.SensorMisses,
		m.SensorTimeouts,
		m.OutputErrors,
		m.PublishErrors,
		m.ReadDuration,
	)
	for _, ch := range gpio.Channels {
		m.Output.WithLabelValues(string(ch)).Set(0)
	}
	return m
}

// ObserveReading records a valid telemetry value.
func (m *Metrics) ObserveReading(t logic.Telemetry) {
	if m == nil {
		return
	}
	m.TemperatureF.Set(t.TemperatureF)
	m.Humidity.Set(t.Humidity)
}

// ObserveReadDuration records how long a guarded read took.
func (m *Metrics) ObserveReadDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ReadDuration.Observe(seconds)
}

// ObserveLevels records the relay levels just written.
func (m *Metrics) ObserveLevels(levels ...gpio.Level) {
	if m == nil {
		return
	}
	for _, l := range levels {
		v := 0.0
		if l.On {
			v = 1
		}
		m.Output.WithLabelValues(string(l.Channel)).Set(v)
	}
}

// ObserveStage records the heating stage.
func (m *Metrics) ObserveStage(s logic.Stage) {
	if m == nil {
		return
	}
	p1, p2 := s.Plates()
	n := 0.0
	if p1 {
		n++
	}
	if p2 {
		n++
	}
	m.Stage.Set(n)
}

// IncCycle counts a completed control cycle.
func (m *Metrics) IncCycle() {
	if m == nil {
		return
	}
	m.CyclesTotal.Inc()
}

// IncSensorMiss counts a read that produced no valid reading.
func (m *Metrics) IncSensorMiss() {
	if m == nil {
		return
	}
	m.SensorMisses.Inc()
}

// IncOutputError counts a failed relay write.
func (m *Metrics) IncOutputError() {
	if m == nil {
		return
	}
	m.OutputErrors.Inc()
}

// IncPublishError counts a failed publish of the given kind.
func (m *Metrics) IncPublishError(kind string) {
	if m == nil {
		return
	}
	m.PublishErrors.WithLabelValues(kind).Inc()
}

// MarkShutdown records a sensor timeout and the fail-safe latch.
func (m *Metrics) MarkShutdown(timeout bool) {
	if m == nil {
		return
	}
	if timeout {
		m.SensorTimeouts.Inc()
	}
	m.Shutdown.Set(1)
}

// BufferSource reports the state of the offline MQTT buffer.
type BufferSource interface {
	Buffered() int
	Dropped() int
}

// RegisterMQTTBuffer exposes the offline buffer depth and the messages it
// dropped. Values are read from src at scrape time.
func RegisterMQTTBuffer(reg prometheus.Registerer, src BufferSource) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: metricPrefix + "mqtt_buffered_messages",
			Help: "Messages waiting for the broker connection",
		}, func() float64 { return float64(src.Buffered()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: metricPrefix + "mqtt_dropped_messages_total",
			Help: "Messages overwritten because the offline buffer was full",
		}, func() float64 { return float64(src.Dropped()) }),
	)
}

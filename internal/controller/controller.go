// Package controller runs the honey warmer control cycle: read the sensor
// under a deadline, publish telemetry, decide the heating stage and drive
// the relays. A sensor that stays silent past the deadline latches the
// controller into a fail-safe shutdown with every output off.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/honey-warmer/internal/config"
	"github.com/sweeney/honey-warmer/internal/gpio"
	"github.com/sweeney/honey-warmer/internal/logic"
	"github.com/sweeney/honey-warmer/internal/metrics"
	"github.com/sweeney/honey-warmer/internal/mqtt"
	"github.com/sweeney/honey-warmer/internal/sensor"
	"github.com/sweeney/honey-warmer/internal/status"
)

// ErrSensorTimeout is returned once the sensor produced no valid reading
// before the read deadline. The controller is shut down when it is returned.
var ErrSensorTimeout = errors.New("sensor timeout")

// ErrShutdown is returned by Step after the fail-safe latched.
var ErrShutdown = errors.New("controller is shut down")

// ReasonSensorTimeout is the fault reason recorded for a sensor timeout.
const ReasonSensorTimeout = "SENSOR_TIMEOUT"

// Gate names as reported on the status page.
const (
	GateTwoPlates = "two_plates"
	GateOnePlate  = "one_plate"
	GateFan       = "fan"
)

// Deps are the collaborators of a Controller. Sensor, Outputs and
// Publisher are required; everything else is optional.
type Deps struct {
	Sensor     sensor.Sensor
	Outputs    gpio.Writer
	Publisher  mqtt.Publisher
	MQTTStatus mqtt.ConnectionStatus
	Tracker    *status.Tracker
	Metrics    *metrics.Metrics

	// Network refreshes the network info attached to heartbeats.
	Network func() *status.NetworkInfo

	// Now and Sleep default to the wall clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Controller owns the gates and the actuator state. It is not safe for
// concurrent use; Run is the single goroutine that drives it.
type Controller struct {
	cfg       config.ControlConfig
	heartbeat time.Duration

	stages logic.StageGates
	fan    *logic.Gate

	sensor    sensor.Sensor
	outputs   gpio.Writer
	publisher mqtt.Publisher
	mqtt      mqtt.ConnectionStatus
	tracker   *status.Tracker
	metrics   *metrics.Metrics
	network   func() *status.NetworkInfo
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	state         string
	stage         logic.Stage
	levels        status.Outputs
	telemetry     logic.Telemetry
	lastReading   time.Time
	lastHeartbeat time.Time
	counts        status.Counts

	// Set once the fail-safe confirmed the channel off.
	platesOff bool
	fanOff    bool
}

// New creates a Controller from a validated configuration.
func New(cfg *config.Config, deps Deps) *Controller {
	twoPlates, onePlate, fan := cfg.Gates()

	c := &Controller{
		cfg:       cfg.Control,
		heartbeat: cfg.Heartbeat,
		stages: logic.StageGates{
			TwoPlates: logic.NewGateFromConfig(twoPlates),
			OnePlate:  logic.NewGateFromConfig(onePlate),
		},
		fan:       logic.NewGateFromConfig(fan),
		sensor:    deps.Sensor,
		outputs:   deps.Outputs,
		publisher: deps.Publisher,
		mqtt:      deps.MQTTStatus,
		tracker:   deps.Tracker,
		metrics:   deps.Metrics,
		network:   deps.Network,
		now:       deps.Now,
		sleep:     deps.Sleep,
		state:     status.StateRunning,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.sleep == nil {
		c.sleep = sleepContext
	}
	return c
}

// State returns RUNNING or SHUTDOWN.
func (c *Controller) State() string {
	return c.state
}

// Stage returns the heating stage of the last completed cycle.
func (c *Controller) Stage() logic.Stage {
	return c.stage
}

// OutputsOff reports whether the fail-safe has confirmed every output off.
func (c *Controller) OutputsOff() bool {
	return c.platesOff && c.fanOff
}

// Counts returns the loop counters.
func (c *Controller) Counts() status.Counts {
	return c.counts
}

// ReadGuarded obtains one valid reading. Misses are retried after
// RetryBackoff until ReadTimeout has elapsed since the first attempt, or
// MaxAttempts is reached when set. Then FailSafe runs and ErrSensorTimeout
// is returned. Cancelling ctx while waiting returns ctx.Err() and leaves the
// controller running.
func (c *Controller) ReadGuarded(ctx context.Context) (logic.Reading, error) {
	start := c.now()

	for attempt := 1; ; attempt++ {
		r, err := c.sensor.Read()
		if err == nil && r.Valid {
			c.metrics.ObserveReadDuration(c.now().Sub(start).Seconds())
			return r, nil
		}

		c.counts.SensorMisses++
		c.metrics.IncSensorMiss()
		log.WithFields(log.Fields{"attempt": attempt, "error": err}).Debug("sensor miss")

		elapsed := c.now().Sub(start)
		if elapsed > c.cfg.ReadTimeout || (c.cfg.MaxAttempts > 0 && attempt >= c.cfg.MaxAttempts) {
			log.WithFields(log.Fields{"attempts": attempt, "elapsed": elapsed}).Error("no valid reading before deadline")
			c.FailSafe(ReasonSensorTimeout)
			return logic.Reading{}, ErrSensorTimeout
		}

		if err := c.sleep(ctx, c.cfg.RetryBackoff); err != nil {
			return logic.Reading{}, err
		}
	}
}

// FailSafe turns every output off, publishes the fault and latches the
// controller into SHUTDOWN. Each step runs even when an earlier one fails.
// Outputs whose write failed are retried by Run. Only the first call has any
// effect.
func (c *Controller) FailSafe(reason string) {
	if c.state == status.StateShutdown {
		return
	}
	c.state = status.StateShutdown
	at := c.now()

	if err := c.driveOff(); err != nil {
		log.WithError(err).Error("fail-safe: outputs not confirmed off")
	}
	c.stage = logic.StageOff

	if err := c.publisher.PublishDebug(mqtt.MessageTimeout); err != nil {
		c.publishFailed("debug", err)
	}

	c.metrics.MarkShutdown(reason == ReasonSensorTimeout)

	event := mqtt.SystemEvent{
		Timestamp: at,
		Event:     mqtt.EventFault,
		Reason:    reason,
		Retained:  true,
	}
	if c.tracker != nil {
		c.tracker.SetFault(reason, at)
		c.report()
		event.RawPayload = status.FormatStatusEvent(c.tracker.Snapshot(), mqtt.EventFault, reason)
	}
	if err := c.publisher.PublishSystem(event); err != nil {
		c.publishFailed("system", err)
	}

	if c.OutputsOff() {
		log.WithField("reason", reason).Error("fail-safe shutdown, outputs off")
		return
	}
	log.WithField("reason", reason).Error("fail-safe shutdown, outputs may still be on")
}

// driveOff writes the plates off, then the fan, skipping whatever is already
// confirmed off. Both writes are attempted.
func (c *Controller) driveOff() error {
	var errs []error
	if !c.platesOff {
		if err := c.write(gpio.Off(gpio.Plate1), gpio.Off(gpio.Plate2)); err != nil {
			errs = append(errs, fmt.Errorf("plates off: %w", err))
		} else {
			c.platesOff = true
		}
	}
	if !c.fanOff {
		if err := c.write(gpio.Off(gpio.Fan)); err != nil {
			errs = append(errs, fmt.Errorf("fan off: %w", err))
		} else {
			c.fanOff = true
		}
	}
	return errors.Join(errs...)
}

// retryOff repeats driveOff every RetryBackoff until every output is
// confirmed off. If ctx ends first it returns the last write error, or
// ctx.Err() when no retry ran.
func (c *Controller) retryOff(ctx context.Context) error {
	var last error
	for !c.OutputsOff() {
		if err := c.sleep(ctx, c.cfg.RetryBackoff); err != nil {
			if last == nil {
				return err
			}
			return last
		}
		if last = c.driveOff(); last != nil {
			log.WithError(last).Warn("fail-safe: outputs still not off")
			continue
		}
		log.Info("fail-safe: outputs off")
		c.report()
	}
	return nil
}

// Step runs one control cycle. It returns ErrSensorTimeout when the cycle
// ended in fail-safe, ErrShutdown when called after that, ctx.Err() when
// cancelled during a read, and output write errors. Publish errors are
// logged and never fail the cycle.
func (c *Controller) Step(ctx context.Context) error {
	if c.state == status.StateShutdown {
		return ErrShutdown
	}

	r, err := c.ReadGuarded(ctx)
	if err != nil {
		return err
	}
	now := c.now()

	tempF := logic.ToFahrenheit(r.TemperatureC)
	c.telemetry = logic.NewTelemetry(r)
	c.lastReading = now
	c.metrics.ObserveReading(c.telemetry)
	if err := c.publisher.PublishTelemetry(c.telemetry); err != nil {
		c.publishFailed("telemetry", err)
	}

	stage := c.stages.Decide(tempF)
	plate1, plate2 := stage.Plates()
	fanOn := c.fan.Evaluate(tempF)

	var errs []error
	if err := c.write(level(gpio.Plate1, plate1), level(gpio.Plate2, plate2)); err != nil {
		errs = append(errs, err)
	}
	if err := c.write(level(gpio.Fan, fanOn)); err != nil {
		errs = append(errs, err)
	}
	if stage != c.stage {
		log.WithFields(log.Fields{"temp_f": c.telemetry.TemperatureF, "from": c.stage, "to": stage}).Info("stage changed")
	}
	c.stage = stage
	c.metrics.ObserveStage(stage)

	log.WithFields(log.Fields{
		"temp_f":   c.telemetry.TemperatureF,
		"humidity": c.telemetry.Humidity,
		"stage":    stage,
		"fan":      status.OnOff(fanOn),
	}).Debug("cycle")

	c.counts.Cycles++
	c.metrics.IncCycle()
	c.report()
	c.maybeHeartbeat(now)

	return errors.Join(errs...)
}

// Run repeats Step every SamplePeriod until ctx is cancelled. After a
// fail-safe shutdown it only retries the off writes that failed, then waits
// for ctx. On cancellation while running, every output is turned off.
func (c *Controller) Run(ctx context.Context) error {
	log.WithFields(log.Fields{
		"target_f":    c.cfg.TargetTempF,
		"tolerance_f": c.cfg.ToleranceF,
		"period":      c.cfg.SamplePeriod,
		"deadline":    c.cfg.ReadTimeout,
	}).Info("control loop started")

	for c.state == status.StateRunning {
		err := c.Step(ctx)
		switch {
		case errors.Is(err, ErrSensorTimeout):
			continue
		case ctx.Err() != nil:
			return c.stop()
		case err != nil:
			log.WithError(err).Warn("control cycle")
		}

		if err := c.sleep(ctx, c.cfg.SamplePeriod); err != nil {
			return c.stop()
		}
	}

	if err := c.retryOff(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// stop turns every output off after cancellation.
func (c *Controller) stop() error {
	if c.state != status.StateRunning {
		return nil
	}
	log.Info("control loop stopped, outputs off")
	err := c.write(gpio.Off(gpio.Plate1), gpio.Off(gpio.Plate2), gpio.Off(gpio.Fan))
	c.report()
	return err
}

func (c *Controller) write(levels ...gpio.Level) error {
	if err := c.outputs.Write(levels...); err != nil {
		c.counts.OutputErrors++
		c.metrics.IncOutputError()
		return fmt.Errorf("write outputs: %w", err)
	}
	for _, l := range levels {
		switch l.Channel {
		case gpio.Plate1:
			c.levels.Plate1 = l.On
		case gpio.Plate2:
			c.levels.Plate2 = l.On
		case gpio.Fan:
			c.levels.Fan = l.On
		}
	}
	c.metrics.ObserveLevels(levels...)
	return nil
}

func (c *Controller) publishFailed(kind string, err error) {
	c.counts.PublishErrors++
	c.metrics.IncPublishError(kind)
	log.WithError(err).WithField("kind", kind).Warn("publish failed")
}

// report pushes the controller state to the status tracker.
func (c *Controller) report() {
	if c.tracker == nil {
		return
	}
	c.tracker.Update(status.Control{
		State:        c.state,
		TemperatureF: c.telemetry.TemperatureF,
		Humidity:     c.telemetry.Humidity,
		LastReading:  c.lastReading,
		Stage:        c.stage,
		Outputs:      c.levels,
		Gates: []status.GateStatus{
			gateStatus(GateTwoPlates, c.stages.TwoPlates),
			gateStatus(GateOnePlate, c.stages.OnePlate),
			gateStatus(GateFan, c.fan),
		},
		Counts: c.counts,
	})
	if c.mqtt != nil {
		c.tracker.SetMQTTConnected(c.mqtt.IsConnected())
	}
}

func (c *Controller) maybeHeartbeat(now time.Time) {
	if c.heartbeat <= 0 {
		return
	}
	if c.lastHeartbeat.IsZero() {
		c.lastHeartbeat = now
		return
	}
	if now.Sub(c.lastHeartbeat) < c.heartbeat {
		return
	}
	c.lastHeartbeat = now

	event := mqtt.SystemEvent{Timestamp: now, Event: mqtt.EventHeartbeat}
	if c.tracker != nil {
		if c.network != nil {
			if info := c.network(); info != nil {
				c.tracker.SetNetwork(info)
			}
		}
		event.RawPayload = status.FormatStatusEvent(c.tracker.Snapshot(), mqtt.EventHeartbeat, "")
	}
	log.WithFields(log.Fields{"cycles": c.counts.Cycles, "misses": c.counts.SensorMisses}).Info("heartbeat")
	if err := c.publisher.PublishSystem(event); err != nil {
		c.publishFailed("system", err)
	}
}

func gateStatus(name string, g *logic.Gate) status.GateStatus {
	return status.GateStatus{
		Name:    name,
		Rising:  g.Rising(),
		Falling: g.Falling(),
		Active:  g.Active(),
		Armed:   g.Armed(),
	}
}

func level(ch gpio.Channel, on bool) gpio.Level {
	return gpio.Level{Channel: ch, On: on}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

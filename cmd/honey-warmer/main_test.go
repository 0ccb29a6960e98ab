package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/honey-warmer/internal/config"
	"github.com/sweeney/honey-warmer/internal/controller"
	"github.com/sweeney/honey-warmer/internal/gpio"
	"github.com/sweeney/honey-warmer/internal/mqtt"
	"github.com/sweeney/honey-warmer/internal/sensor"
	"github.com/sweeney/honey-warmer/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	require.NotNil(t, info)
	require.Equal(t, status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}, *info)
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestSignalName(t *testing.T) {
	require.Equal(t, "SIGINT", signalName(syscall.SIGINT))
	require.Equal(t, "SIGTERM", signalName(syscall.SIGTERM))
	require.Equal(t, "UNKNOWN", signalName(syscall.SIGHUP))
}

func TestFormatReading(t *testing.T) {
	require.Equal(t, "Temperature: 78.1F Humidity: 41.3%", formatReading(sensor.Valid(25.6, 41.26)))
	require.Equal(t, "no valid reading", formatReading(sensor.Misses(1)[0]))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, "control:\n  target_temp_f: 110\n  fan_on_temp_f: 85\n")

	cfg, err := loadConfig(path, 0)
	require.NoError(t, err)
	require.Equal(t, 110.0, cfg.Control.TargetTempF)
	require.Equal(t, 85.0, cfg.Control.FanOnTempF)
	require.Equal(t, 5.0, cfg.Control.ToleranceF)
}

func TestLoadConfigTargetOverride(t *testing.T) {
	path := writeConfig(t, "control:\n  target_temp_f: 110\n")

	cfg, err := loadConfig(path, 100)
	require.NoError(t, err)
	require.Equal(t, 100.0, cfg.Control.TargetTempF)
}

func TestLoadConfigExplicitPathMissing(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), 0)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadConfigDefaultPathFallsBack(t *testing.T) {
	if _, err := os.Stat(config.DefaultPath); err == nil {
		t.Skipf("%s exists on this host", config.DefaultPath)
	}

	cfg, err := loadConfig("", 100)
	require.NoError(t, err)
	want := config.Default()
	want.Control.TargetTempF = 100
	require.Equal(t, want, cfg)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := writeConfig(t, "control:\n  tolerance_f: -1\n")

	_, err := loadConfig(path, 0)
	require.Error(t, err)
	require.Contains(t, err.Error(), "tolerance")
}

func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.InfoLevel)
	defer log.SetFormatter(&log.TextFormatter{})

	require.NoError(t, setupLogging(config.LogConfig{Level: "warn", Format: "json"}, false))
	require.Equal(t, log.WarnLevel, log.GetLevel())
	require.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	require.NoError(t, setupLogging(config.LogConfig{Level: "warn", Format: "text"}, true))
	require.Equal(t, log.DebugLevel, log.GetLevel())

	require.Error(t, setupLogging(config.LogConfig{Level: "loud"}, false))
}

func TestStatusConfig(t *testing.T) {
	cfg := config.Default()
	cfg.HTTP.Addr = ":8080"

	sc := statusConfig(cfg)
	require.Equal(t, 105.0, sc.TargetTempF)
	require.Equal(t, int64(5000), sc.SamplePeriodMs)
	require.Equal(t, int64(300000), sc.ReadTimeoutMs)
	require.Equal(t, config.SensorIIO, sc.SensorDriver)
	require.Equal(t, ":8080", sc.HTTPAddr)
}

func TestPublishStartup(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	tr := status.NewTracker(time.Now(), status.Config{Broker: "tcp://127.0.0.1:1883"})

	publishStartup(pub, tr)

	require.Equal(t, []string{mqtt.EventStartup}, pub.SystemEventNames())
	require.True(t, pub.SystemEvents[0].Retained)
	require.Contains(t, string(pub.SystemPayloads[0]), `"event":"STARTUP"`)
	require.Equal(t, []string{mqtt.MessageConnected}, pub.Debug)
}

type loopFixture struct {
	writer  *gpio.FakeWriter
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	ctrl    *controller.Controller
}

func newLoopFixture(cfg *config.Config, s sensor.Sensor) *loopFixture {
	f := &loopFixture{
		writer:  gpio.NewFakeWriter(),
		pub:     mqtt.NewFakePublisher(),
		tracker: status.NewTracker(time.Now(), status.Config{}),
	}
	f.ctrl = controller.New(cfg, controller.Deps{
		Sensor:     s,
		Outputs:    f.writer,
		Publisher:  f.pub,
		MQTTStatus: f.pub,
		Tracker:    f.tracker,
	})
	return f
}

func fixedClock() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func TestRunLoopShutdownSIGTERM(t *testing.T) {
	cfg := config.Default()
	f := newLoopFixture(cfg, sensor.NewFakeSensor(sensor.Valid(20, 50)))

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM
	require.NoError(t, runLoop(f.ctrl, f.pub, f.pub, f.tracker, fixedClock, sig))

	require.Equal(t, []string{mqtt.EventShutdown}, f.pub.SystemEventNames())
	ev := f.pub.SystemEvents[0]
	require.Equal(t, "SIGTERM", ev.Reason)
	require.True(t, ev.Retained)
	require.Contains(t, string(f.pub.SystemPayloads[0]), `"reason":"SIGTERM"`)

	// One cycle ran, then cancellation turned everything off.
	require.Len(t, f.pub.Telemetry, 1)
	require.Equal(t, "PLATE1=OFF PLATE2=OFF FAN=OFF", f.writer.String())
	require.Equal(t, status.StateRunning, f.ctrl.State())
}

func TestRunLoopShutdownAfterFailSafe(t *testing.T) {
	cfg := config.Default()
	cfg.Control.MaxAttempts = 1
	f := newLoopFixture(cfg, sensor.NewFakeSensor(sensor.Misses(1)...))

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGINT
	require.NoError(t, runLoop(f.ctrl, f.pub, f.pub, f.tracker, fixedClock, sig))

	require.Equal(t, []string{mqtt.EventFault, mqtt.EventShutdown}, f.pub.SystemEventNames())
	require.Equal(t, []string{mqtt.MessageTimeout}, f.pub.Debug)
	require.Equal(t, status.StateShutdown, f.ctrl.State())

	payload := string(f.pub.SystemPayloads[1])
	require.True(t, strings.Contains(payload, `"state":"SHUTDOWN"`), payload)
	require.Contains(t, payload, controller.ReasonSensorTimeout)
}

type stoppedRunner struct{ err error }

func (r stoppedRunner) Run(ctx context.Context) error { return r.err }

func TestRunLoopRunnerStops(t *testing.T) {
	pub := mqtt.NewFakePublisher()
	boom := errors.New("boom")

	err := runLoop(stoppedRunner{err: boom}, pub, nil, nil, fixedClock, make(chan os.Signal))
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{mqtt.EventShutdown}, pub.SystemEventNames())
	require.Equal(t, "STOPPED", pub.SystemEvents[0].Reason)
}

func TestRunLoopShutdownPublishFailure(t *testing.T) {
	f := newLoopFixture(config.Default(), sensor.NewFakeSensor(sensor.Valid(20, 50)))
	f.pub.PublishSystemError = errors.New("not connected")

	sig := make(chan os.Signal, 1)
	sig <- syscall.SIGTERM
	require.NoError(t, runLoop(f.ctrl, f.pub, f.pub, f.tracker, fixedClock, sig))
	require.Empty(t, f.pub.SystemEvents)
}

package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sweeney/honey-warmer/internal/logic"
)

func testControl() Control {
	return Control{
		State:        StateRunning,
		TemperatureF: 100.4,
		Humidity:     41.3,
		LastReading:  time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
		Stage:        logic.StageOnePlate,
		Outputs:      Outputs{Plate1: true, Fan: true},
		Gates: []GateStatus{
			{Name: "two_plates", Rising: 95, Falling: 90, Armed: true},
			{Name: "one_plate", Rising: 105, Falling: 100, Active: true},
			{Name: "fan", Rising: 80, Falling: 75, Active: true, Armed: true},
		},
		Counts: Counts{Cycles: 12, SensorMisses: 3},
	}
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tr := NewTracker(start, Config{TargetTempF: 105, Broker: "tcp://localhost:1883"})

	snap := tr.Snapshot()
	require.True(t, snap.StartTime.Equal(start))
	require.Equal(t, StateRunning, snap.State)
	require.Equal(t, 105.0, snap.Config.TargetTempF)
	require.False(t, snap.HasReading())
	require.False(t, snap.MQTTConnected)
	require.Empty(t, snap.Fault)
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	c := testControl()
	tr.Update(c)

	// Mutating the caller's slice must not leak into the tracker.
	c.Gates[0].Active = true

	snap := tr.Snapshot()
	require.Equal(t, logic.StageOnePlate, snap.Stage)
	require.True(t, snap.HasReading())
	require.Equal(t, 100.4, snap.TemperatureF)
	require.Len(t, snap.Gates, 3)
	require.False(t, snap.Gates[0].Active)
	require.Equal(t, 3, snap.Counts.SensorMisses)
}

func TestSetFaultFirstWins(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)

	tr.SetFault("SENSOR_TIMEOUT", at)
	tr.SetFault("OTHER", at.Add(time.Minute))

	snap := tr.Snapshot()
	require.Equal(t, StateShutdown, snap.State)
	require.Equal(t, "SENSOR_TIMEOUT", snap.Fault)
	require.True(t, snap.FaultTime.Equal(at))
}

func TestSetMQTTConnectedAndNetwork(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.SetMQTTConnected(true)
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "10.0.0.5", Status: "connected"})

	snap := tr.Snapshot()
	require.True(t, snap.MQTTConnected)
	require.NotNil(t, snap.Network)
	require.Equal(t, "10.0.0.5", snap.Network.IP)
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Now().Add(-90 * time.Second)
	snap := NewTracker(start, Config{}).Snapshot()
	require.GreaterOrEqual(t, snap.Uptime(), 90*time.Second)
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			c := testControl()
			c.Counts.Cycles = i
			tr.Update(c)
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()
	wg.Wait()
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Control:   testControl(),
		StartTime: start,
		Now:       start.Add(65*time.Second + 400*time.Millisecond),
		Config:    Config{TargetTempF: 105, SamplePeriodMs: 5000, Broker: "tcp://127.0.0.1:1883"},
	}

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &sj))

	s := sj.Status
	require.Equal(t, StateRunning, s.State)
	require.Equal(t, "ONE_PLATE", s.Stage)
	require.Equal(t, OutputsJSON{Plate1: "ON", Plate2: "OFF", Fan: "ON"}, s.Outputs)
	require.NotNil(t, s.Reading)
	require.Equal(t, 100.4, s.Reading.TemperatureF)
	require.Equal(t, "2026-03-01T12:00:05Z", s.Reading.Timestamp)
	require.Equal(t, int64(65), s.UptimeSeconds)
	require.Len(t, s.Gates, 3)
	require.Equal(t, "one_plate", s.Gates[1].Name)
	require.Nil(t, s.Fault)
	require.Nil(t, s.Network)
	require.Empty(t, s.Event)
	require.Equal(t, int64(5000), s.Config.SamplePeriodMs)
	require.Equal(t, "tcp://127.0.0.1:1883", s.MQTT.Broker)
}

func TestFormatJSONBeforeFirstReading(t *testing.T) {
	snap := NewTracker(time.Now(), Config{}).Snapshot()

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(FormatJSON(snap), &sj))
	require.Nil(t, sj.Status.Reading)
	require.Equal(t, "UNKNOWN", sj.Status.Stage)
	require.NotNil(t, sj.Status.Gates, "gates render as [] not null")
}

func TestFormatStatusEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 10, 0, 0, time.UTC)
	tr := NewTracker(at.Add(-time.Hour), Config{})
	tr.Update(testControl())
	tr.SetFault("SENSOR_TIMEOUT", at)

	data := FormatStatusEvent(tr.Snapshot(), "FAULT", "SENSOR_TIMEOUT")

	var sj StatusJSON
	require.NoError(t, json.Unmarshal(data, &sj))
	require.Equal(t, "FAULT", sj.Status.Event)
	require.Equal(t, "SENSOR_TIMEOUT", sj.Status.Reason)
	require.Equal(t, StateShutdown, sj.Status.State)
	require.NotNil(t, sj.Status.Fault)
	require.Equal(t, "2026-03-01T12:10:00Z", sj.Status.Fault.Timestamp)
	require.NotContains(t, string(data), "\n", "event payload is compact")
}

func TestOnOff(t *testing.T) {
	require.Equal(t, "ON", OnOff(true))
	require.Equal(t, "OFF", OnOff(false))
}

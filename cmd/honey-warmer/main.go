// Command honey-warmer reads a temperature/humidity sensor, drives the
// heating plates and fan of a honey warmer, and publishes telemetry to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/honey-warmer/internal/config"
	"github.com/sweeney/honey-warmer/internal/controller"
	"github.com/sweeney/honey-warmer/internal/gpio"
	"github.com/sweeney/honey-warmer/internal/logic"
	"github.com/sweeney/honey-warmer/internal/metrics"
	"github.com/sweeney/honey-warmer/internal/mqtt"
	"github.com/sweeney/honey-warmer/internal/sensor"
	"github.com/sweeney/honey-warmer/internal/status"
	"github.com/sweeney/honey-warmer/internal/web"
)

var (
	app          = kingpin.New("honey-warmer", "Honey warmer temperature controller")
	configPath   = app.Flag("config", "Configuration file (YAML)").Short('c').String()
	verbose      = app.Flag("verbose", "Verbose logging").Short('v').Bool()
	target       = app.Flag("target", "Override the target temperature (F)").Short('t').Float64()
	printReading = app.Flag("print-reading", "Read the sensor once, print and exit").Bool()
)

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := loadConfig(*configPath, *target)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := setupLogging(cfg.Log, *verbose); err != nil {
		log.Fatalf("logging: %v", err)
	}

	if err := run(cfg, *printReading); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig reads the config file. A missing file at the default location
// falls back to built-in defaults; an explicit path must exist.
func loadConfig(path string, targetF float64) (*config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = config.DefaultPath
	}

	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
		log.WithField("path", path).Warn("config file not found, using defaults")
		cfg = config.Default()
	default:
		return nil, err
	}

	if targetF != 0 {
		cfg.Control.TargetTempF = targetF
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(cfg config.LogConfig, verbose bool) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}

func run(cfg *config.Config, printOnly bool) error {
	s, err := openSensor(cfg.Sensor)
	if err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	defer s.Close()

	if printOnly {
		r, err := s.Read()
		if err != nil {
			return fmt.Errorf("read sensor: %w", err)
		}
		fmt.Println(formatReading(r))
		return nil
	}

	outputs, err := openOutputs(cfg.Outputs)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := outputs.Close(); err != nil {
			log.WithError(err).Error("gpio cleanup")
		}
	}()

	publisher := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
		Username: cfg.MQTT.Username,
		Password: cfg.MQTT.Password,
		Topics: mqtt.Topics{
			Temperature: cfg.MQTT.TopicTemperature,
			Humidity:    cfg.MQTT.TopicHumidity,
			Debug:       cfg.MQTT.TopicDebug,
			System:      cfg.MQTT.TopicSystem,
		},
		BufferSize: cfg.MQTT.BufferSize,
	})
	defer publisher.Close()

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.SetMQTTConnected(publisher.IsConnected())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	metrics.RegisterMQTTBuffer(reg, publisher)

	publishStartup(publisher, tracker)

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker, reg)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("http server")
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.WithField("addr", cfg.HTTP.Addr).Info("http status server listening")
	}

	ctrl := controller.New(cfg, controller.Deps{
		Sensor:     s,
		Outputs:    outputs,
		Publisher:  publisher,
		MQTTStatus: publisher,
		Tracker:    tracker,
		Metrics:    m,
		Network:    readNetworkInfo,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	return runLoop(ctrl, publisher, publisher, tracker, time.Now, sigCh)
}

type runner interface {
	Run(ctx context.Context) error
}

// runLoop runs the controller until a signal arrives, then stops it and
// publishes the SHUTDOWN event.
func runLoop(ctrl runner, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, now func() time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	var (
		reason string
		runErr error
	)
	select {
	case s := <-sig:
		log.WithField("signal", s).Info("shutting down")
		reason = signalName(s)
		cancel()
		runErr = <-done
	case runErr = <-done:
		reason = "STOPPED"
	}

	event := mqtt.SystemEvent{
		Timestamp: now(),
		Event:     mqtt.EventShutdown,
		Reason:    reason,
		Retained:  true,
	}
	if tracker != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), mqtt.EventShutdown, reason)
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.WithError(err).Warn("failed to publish shutdown event")
	} else {
		log.Info("published shutdown event")
	}
	return runErr
}

func publishStartup(publisher mqtt.Publisher, tracker *status.Tracker) {
	snap := tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Info("published startup event")
	}
	if err := publisher.PublishDebug(mqtt.MessageConnected); err != nil {
		log.WithError(err).Warn("failed to publish connected message")
	}
}

func openSensor(cfg config.SensorConfig) (sensor.Sensor, error) {
	if cfg.Driver == config.SensorModbus {
		mc := cfg.Modbus
		s, err := sensor.NewModbusSensor(sensor.ModbusConfig{
			Mode:                mc.Mode,
			Address:             mc.Address,
			BaudRate:            mc.BaudRate,
			SlaveID:             mc.SlaveID,
			Timeout:             mc.Timeout,
			TemperatureRegister: mc.TemperatureRegister,
			HumidityRegister:    mc.HumidityRegister,
			Scale:               mc.Scale,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := sensor.NewIIOSensor(cfg.IIO.Device)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openOutputs(cfg config.OutputsConfig) (gpio.Writer, error) {
	pins := gpio.Pins{Plate1: cfg.Plate1Pin, Plate2: cfg.Plate2Pin, Fan: cfg.FanPin}

	if cfg.Driver == config.OutputRPIO {
		w, err := gpio.NewRPIOWriter(pins, cfg.ActiveLow)
		if err != nil {
			return nil, err
		}
		return w, nil
	}

	w, err := gpio.NewRealWriter(cfg.Chip, pins, cfg.ActiveLow)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func statusConfig(cfg *config.Config) status.Config {
	return status.Config{
		TargetTempF:    cfg.Control.TargetTempF,
		ToleranceF:     cfg.Control.ToleranceF,
		TwoPlateOffset: cfg.Control.TwoPlateOffset,
		FanOnTempF:     cfg.Control.FanOnTempF,
		SamplePeriodMs: cfg.Control.SamplePeriod.Milliseconds(),
		ReadTimeoutMs:  cfg.Control.ReadTimeout.Milliseconds(),
		HeartbeatMs:    cfg.Heartbeat.Milliseconds(),
		SensorDriver:   cfg.Sensor.Driver,
		OutputDriver:   cfg.Outputs.Driver,
		Broker:         cfg.MQTT.Broker,
		HTTPAddr:       cfg.HTTP.Addr,
	}
}

func formatReading(r logic.Reading) string {
	if !r.Valid {
		return "no valid reading"
	}
	t := logic.NewTelemetry(r)
	return fmt.Sprintf("Temperature: %.1fF Humidity: %.1f%%", t.TemperatureF, t.Humidity)
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

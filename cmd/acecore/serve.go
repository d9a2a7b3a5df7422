package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/ace-core/migrations"

	"github.com/nerrad567/ace-core/internal/ace"
	"github.com/nerrad567/ace-core/internal/api"
	"github.com/nerrad567/ace-core/internal/gcode"
	"github.com/nerrad567/ace-core/internal/history"
	"github.com/nerrad567/ace-core/internal/infrastructure/config"
	"github.com/nerrad567/ace-core/internal/infrastructure/database"
	"github.com/nerrad567/ace-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/ace-core/internal/infrastructure/logging"
	"github.com/nerrad567/ace-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/ace-core/internal/telemetry"
	"github.com/nerrad567/ace-core/internal/thermal"
	"github.com/nerrad567/ace-core/internal/variables"
)

// historyQueueSize bounds the snapshots waiting to be written.
const historyQueueSize = 256

// run is the daemon, separated from main for testability.
// It returns when ctx is cancelled or a component fails, such as a
// thermal fault.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - configPath: YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting acecore",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Command channel
	channel, closeChannel, err := openChannel(cfg, mqttClient, log)
	if err != nil {
		return err
	}
	defer closeChannel()

	// State cache and its observers. Observers are attached before the
	// persisted state is restored so the restore is recorded like any
	// other change.
	cache := ace.NewCache()
	cache.SetLogger(log)

	historyRepo := history.NewRepository(db.DB)
	recorder := history.NewRecorder(historyRepo, historyQueueSize)
	recorder.SetLogger(log)
	cache.Subscribe(recorder.Observe)

	statePub := newStatePublisher(mqttClient, log)
	cache.Subscribe(statePub.Observe)

	// Connect to InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection", "write_failures", influxClient.WriteFailures())
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		cache.Subscribe(telemetry.NewExporter(influxClient, cfg.Device.Name).Observe)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Persisted variables
	store := variables.NewStore(db.DB)
	persistence := ace.NewPersistence(store, cache)
	persistence.SetLogger(log)
	if cfg.Variables.ForwardToFirmware {
		persistence.SetForwarder(channel)
	}
	store.Watch(func(key, value, _ string) {
		persistence.HandleChange(key, value)
	})
	if cfg.Variables.MirrorMQTT {
		mirror := variables.NewMirror(store, mqttClient, byte(cfg.MQTT.QoS))
		mirror.SetLogger(log)
		if startErr := mirror.Start(); startErr != nil {
			return fmt.Errorf("starting variable mirror: %w", startErr)
		}
		defer func() {
			if stopErr := mirror.Stop(); stopErr != nil {
				log.Warn("error stopping variable mirror", "error", stopErr)
			}
		}()
		log.Info("variable mirror started")
	}
	if restoreErr := persistence.Restore(ctx); restoreErr != nil {
		return fmt.Errorf("restoring persisted variables: %w", restoreErr)
	}

	// Device status reports
	topics := mqtt.Topics{}
	statusErr := mqttClient.Subscribe(topics.DeviceStatus(), byte(cfg.MQTT.QoS), func(_ string, payload []byte) error {
		return cache.ApplyStatusJSON(payload)
	})
	if statusErr != nil {
		return fmt.Errorf("subscribing to device status: %w", statusErr)
	}

	dispatcher := ace.NewDispatcher(cache, channel)
	dispatcher.SetLogger(log)
	dispatcher.SetDefaultDryerDuration(cfg.Device.DryerDuration)

	poller := ace.NewPoller(dispatcher, cfg.GetPollInterval())
	poller.SetLogger(log)

	var monitor *thermal.Monitor
	if cfg.Thermal.Enabled {
		monitor, err = thermal.NewMonitor(cache, channel, cfg.Thermal.MinTemp, cfg.Thermal.MaxTemp, cfg.GetSampleInterval())
		if err != nil {
			return fmt.Errorf("creating thermal monitor: %w", err)
		}
		monitor.SetLogger(log)
	} else {
		log.Warn("thermal monitor disabled")
	}

	deps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Cache:       cache,
		Dispatcher:  dispatcher,
		Persistence: persistence,
		Sender:      channel,
		History:     historyRepo,
		Variables:   store,
		Recorder:    recorder,
		MQTT:        mqttClient,
		DB:          db.DB,
		Version:     version,
	}
	if monitor != nil {
		deps.Thermal = monitor
	}
	apiServer, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	listener := ace.NewListener(cache)
	listener.SetLogger(log)
	if startErr := channel.Start(gctx, listener.HandleLine); startErr != nil {
		return fmt.Errorf("starting command channel: %w", startErr)
	}

	if startErr := apiServer.Start(gctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	g.Go(func() error { return recorder.Run(gctx) })
	if retention := cfg.GetHistoryRetention(); retention > 0 {
		pruner := history.NewPruner(historyRepo, retention, cfg.GetPruneInterval())
		pruner.SetLogger(log)
		g.Go(func() error { return pruner.Run(gctx) })
	} else {
		log.Info("state history retention disabled")
	}
	g.Go(func() error { return statePub.Run(gctx) })
	g.Go(func() error { return poller.Run(gctx) })
	if monitor != nil {
		g.Go(func() error { return monitor.Run(gctx) })
	}
	if serialCh, ok := channel.(*gcode.SerialChannel); ok {
		g.Go(func() error {
			select {
			case <-serialCh.Done():
				if gctx.Err() != nil {
					return nil
				}
				return errors.New("serial read loop stopped")
			case <-gctx.Done():
				return nil
			}
		})
	}

	log.Info("initialisation complete",
		"transport", cfg.Transport.Type,
		"api_port", cfg.API.Port,
		"poll_interval", poller.Interval(),
	)

	err = g.Wait()
	if err != nil {
		log.Error("shutting down after failure", "error", err)
	} else {
		log.Info("shutdown signal received, cleaning up")
	}

	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB (if enabled), command channel, MQTT, database.
	return err
}

// openChannel creates the configured command channel and a function that
// releases it.
func openChannel(cfg *config.Config, client *mqtt.Client, log *logging.Logger) (gcode.Channel, func(), error) {
	switch cfg.Transport.Type {
	case "serial":
		ch, err := gcode.OpenSerial(gcode.SerialConfig{
			Device:      cfg.Transport.Serial.Device,
			BaudRate:    cfg.Transport.Serial.Baud,
			ReadTimeout: cfg.GetSerialReadTimeout(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening serial channel: %w", err)
		}
		ch.SetLogger(log)
		log.Info("serial channel open", "device", cfg.Transport.Serial.Device, "baud", cfg.Transport.Serial.Baud)
		return ch, func() {
			if err := ch.Close(); err != nil {
				log.Error("error closing serial channel", "error", err)
			}
		}, nil

	case "mqtt":
		topics := mqtt.Topics{}
		ch := gcode.NewMQTTChannel(&gcodeMQTTAdapter{client: client}, topics.GCodeScript(), topics.GCodeResponse(), byte(cfg.MQTT.QoS))
		ch.SetLogger(log)
		return ch, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown transport type %q", cfg.Transport.Type)
	}
}

// gcodeMQTTAdapter adapts the infrastructure MQTT client to the gcode
// channel's MQTTClient interface. The difference is the handler signature:
//   - Infrastructure mqtt: func(topic, payload []byte) error
//   - gcode expects: func(topic, payload []byte)
type gcodeMQTTAdapter struct {
	client *mqtt.Client
}

// Publish implements gcode.MQTTClient.
func (a *gcodeMQTTAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements gcode.MQTTClient.
func (a *gcodeMQTTAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements gcode.MQTTClient.
func (a *gcodeMQTTAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// Package mqtt provides the broker connection for acecore.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS and retained flags
//   - Subscriptions that survive reconnects
//   - Last Will and Testament (LWT) on ace/system/status
//
// # Architecture
//
// The broker connects acecore to the printer side. A firmware bridge
// executes scripts from ace/gcode/script and echoes firmware output to
// ace/gcode/response; the device status report is retained on ace/status;
// persisted variables are mirrored on ace/variables/{key}.
//
//	acecore ↔ MQTT broker ↔ firmware bridge ↔ ACE
//
// # Security Considerations
//
//   - Use TLS (cfg.Broker.TLS=true) when the broker is not on localhost
//   - Anyone who can publish to ace/gcode/script can drive the printer
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.GCodeResponse(), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt

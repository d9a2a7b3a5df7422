package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every topic this service uses.
//
// Hierarchy:
//
//	ace/gcode/script        scripts for the firmware bridge to execute
//	ace/gcode/response      firmware output, one or more lines per message
//	ace/status              retained device status report (JSON)
//	ace/state               retained reconciled state published by acecore
//	ace/variables/{key}     retained persisted variables
//	ace/system/status       acecore online/offline (LWT)
const TopicPrefix = "ace"

// Topics provides builders for ACE MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Variable("ace_current_index")
//	// Returns: "ace/variables/ace_current_index"
type Topics struct{}

// GCodeScript returns the topic scripts are published to.
func (Topics) GCodeScript() string {
	return TopicPrefix + "/gcode/script"
}

// GCodeResponse returns the topic firmware output arrives on.
func (Topics) GCodeResponse() string {
	return TopicPrefix + "/gcode/response"
}

// DeviceStatus returns the retained device status topic.
func (Topics) DeviceStatus() string {
	return TopicPrefix + "/status"
}

// State returns the topic acecore publishes its reconciled state to.
func (Topics) State() string {
	return TopicPrefix + "/state"
}

// Variable returns the retained topic for one persisted variable.
//
// Example: ace/variables/ace_inventory
func (Topics) Variable(key string) string {
	return fmt.Sprintf("%s/variables/%s", TopicPrefix, key)
}

// AllVariables returns a pattern matching every variable topic.
//
// Pattern: ace/variables/+
func (Topics) AllVariables() string {
	return TopicPrefix + "/variables/+"
}

// VariableKey extracts the key from a variable topic.
// The second return value is false when topic is not a variable topic.
func (Topics) VariableKey(topic string) (string, bool) {
	prefix := TopicPrefix + "/variables/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(topic, prefix)
	if key == "" || strings.Contains(key, "/") {
		return "", false
	}
	return key, true
}

// SystemStatus returns the service status topic used for the LWT.
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

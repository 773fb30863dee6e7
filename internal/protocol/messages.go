// ABOUTME: Clock protocol message type definitions
// ABOUTME: Defines structs for the websocket messages exchanged with clock panels
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/globesync/globesync-go/pkg/clockconfig"
)

// Message types
const (
	TypeClientHello  = "client/hello"
	TypeServerHello  = "server/hello"
	TypeClockState   = "clock/state"
	TypeClockCommand = "clock/command"
	TypeClockError   = "clock/error"
)

// Commands accepted in clock/command
const (
	CommandPlay       = "play"
	CommandPause      = "pause"
	CommandMultiplier = "multiplier"
	CommandRange      = "range"
	CommandBounds     = "bounds"
	CommandSeek       = "seek"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ClientHello is sent by panels to initiate the handshake
type ClientHello struct {
	ClientID string `json:"client_id,omitempty"`
	Name     string `json:"name"`
	Version  int    `json:"version"`
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID        string `json:"server_id"`
	ClientID        string `json:"client_id"`
	Name            string `json:"name"`
	Version         int    `json:"version"`
	Product         string `json:"product"`
	SoftwareVersion string `json:"software_version"`
}

// ClockState publishes the persisted clock configuration
type ClockState struct {
	Config     clockconfig.ClockConfig `json:"config"`
	ServerTime string                  `json:"server_time"`
}

// ClockCommand asks the server to change the clock configuration
type ClockCommand struct {
	Command     string   `json:"command"`
	Multiplier  *float64 `json:"multiplier,omitempty"`
	ClockRange  string   `json:"clock_range,omitempty"`
	StartTime   *string  `json:"start_time,omitempty"`
	StopTime    *string  `json:"stop_time,omitempty"`
	CurrentTime *string  `json:"current_time,omitempty"`
}

// ClockError reports a rejected command
type ClockError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// DecodePayload re-decodes a generic payload into out
func DecodePayload(payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

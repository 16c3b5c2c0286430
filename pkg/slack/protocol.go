package slack

import (
	"encoding/json"
	"fmt"
)

// Socket Mode frame types.
const (
	TypeHello         = "hello"
	TypeEventsAPI     = "events_api"
	TypeDisconnect    = "disconnect"
	TypeSlashCommands = "slash_commands"
	TypeInteractive   = "interactive"
)

// Envelope is one frame received over the Socket Mode connection. Frames
// carrying an EnvelopeID must be acknowledged.
type Envelope struct {
	Type                   string          `json:"type"`
	EnvelopeID             string          `json:"envelope_id,omitempty"`
	Payload                json.RawMessage `json:"payload,omitempty"`
	AcceptsResponsePayload bool            `json:"accepts_response_payload,omitempty"`
	RetryAttempt           int             `json:"retry_attempt,omitempty"`
	RetryReason            string          `json:"retry_reason,omitempty"`

	// Set on hello and disconnect frames.
	Reason         string     `json:"reason,omitempty"`
	NumConnections int        `json:"num_connections,omitempty"`
	DebugInfo      *DebugInfo `json:"debug_info,omitempty"`
}

// DebugInfo describes the server side of the connection.
type DebugInfo struct {
	Host                      string `json:"host"`
	ApproximateConnectionTime int    `json:"approximate_connection_time,omitempty"`
}

// Ack acknowledges an envelope.
type Ack struct {
	EnvelopeID string `json:"envelope_id"`
}

// ParseEnvelope decodes a Socket Mode frame.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse socket mode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("socket mode envelope has no type")
	}
	return &env, nil
}

package websocket

import (
	"time"

	"github.com/KevinKickass/FlasherCore/internal/auth"
	"github.com/KevinKickass/FlasherCore/internal/events"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Session messages
	MessageTypeAuth        MessageType = "auth"
	MessageTypeAuthSuccess MessageType = "auth_success"
	MessageTypeAuthFailed  MessageType = "auth_failed"
	MessageTypeSubscribe   MessageType = "subscribe"
	MessageTypeSubscribed  MessageType = "subscribed"

	// Deployment lifecycle, mirrored from the event bus
	MessageTypeDeploymentStarted  = MessageType(events.TypeDeploymentStarted)
	MessageTypeDeploymentRejected = MessageType(events.TypeDeploymentRejected)
	MessageTypeDeploymentFinished = MessageType(events.TypeDeploymentFinished)
	MessageTypeDeploymentFailed   = MessageType(events.TypeDeploymentFailed)
	MessageTypeNodeInitialized    = MessageType(events.TypeNodeInitialized)
	MessageTypeCatalogReloaded    = MessageType(events.TypeCatalogReloaded)
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data,omitempty"`
}

// ClientMessage is what clients send. Token is used by auth, Folder and
// NodeName by subscribe.
type ClientMessage struct {
	Type     MessageType `json:"type"`
	Token    string      `json:"token,omitempty"`
	Folder   string      `json:"folder,omitempty"`
	NodeName string      `json:"node_name,omitempty"`
}

type AuthSuccessData struct {
	Name        string            `json:"name"`
	Permissions []auth.Permission `json:"permissions"`
}

type AuthFailedData struct {
	Reason string `json:"reason"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewEventMessage wraps a bus event; the message carries the event's
// own timestamp.
func NewEventMessage(ev events.Event) Message {
	return Message{
		Type:      MessageType(ev.Type),
		Timestamp: ev.Timestamp,
		Data:      ev,
	}
}

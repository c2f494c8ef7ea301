package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Channels carrying SOS lifecycle change notifications. Dashboard clients
// subscribe instead of polling.
const (
	ChannelSOSCreated     = "sos.created"
	ChannelSOSAccepted    = "sos.accepted"
	ChannelSOSResolved    = "sos.resolved"
	ChannelMedicSubmitted = "medic.submitted"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

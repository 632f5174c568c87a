package api

import (
	"encoding/json"
	"errors"
	"strings"
)

type (
	// MessageType discriminates inbound and outbound frames
	MessageType string

	// Topic identifies a stream of live updates: a gate id, a ticket id, or
	// the admin channel
	Topic string

	// Message is an inbound frame. Payload is forwarded verbatim and never
	// interpreted by the realtime client
	Message struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}

	// Frame is an outbound subscribe or unsubscribe request
	Frame struct {
		Type    MessageType  `json:"type"`
		Payload FramePayload `json:"payload"`
	}

	// FramePayload carries the topic. The key name is kept for backend
	// compatibility; it holds any topic, not only gate ids
	FramePayload struct {
		GateID Topic `json:"gateId"`
	}
)

const (
	MessageSubscribe   MessageType = "subscribe"
	MessageUnsubscribe MessageType = "unsubscribe"

	MessageZoneUpdate   MessageType = "zone-update"
	MessageAdminUpdate  MessageType = "admin-update"
	MessageTicketUpdate MessageType = "ticket-update"
)

// AdminTopic is the channel carrying admin-update events
const AdminTopic Topic = "admin"

var (
	ErrEmptyTopic    = errors.New("topic cannot be empty")
	ErrInvalidTopic  = errors.New("topic cannot contain whitespace")
	ErrReservedTopic = errors.New("topic collides with the admin channel")
)

// GateTopic returns the topic for live zone updates at a gate
func GateTopic(gateID string) Topic {
	return Topic(gateID)
}

// TicketTopic returns the topic for live updates on a single ticket
func TicketTopic(ticketID string) Topic {
	return Topic(ticketID)
}

// Validate rejects topics the backend cannot route
func (t Topic) Validate() error {
	if t == "" {
		return ErrEmptyTopic
	}
	if strings.ContainsFunc(string(t), isSpace) {
		return ErrInvalidTopic
	}
	return nil
}

// ValidateEntity validates a gate or ticket topic, which must not shadow the
// shared admin channel
func (t Topic) ValidateEntity() error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t == AdminTopic {
		return ErrReservedTopic
	}
	return nil
}

// SubscribeFrame builds the frame requesting updates for a topic
func SubscribeFrame(t Topic) Frame {
	return Frame{
		Type:    MessageSubscribe,
		Payload: FramePayload{GateID: t},
	}
}

// UnsubscribeFrame builds the frame cancelling updates for a topic
func UnsubscribeFrame(t Topic) Frame {
	return Frame{
		Type:    MessageUnsubscribe,
		Payload: FramePayload{GateID: t},
	}
}

// Decode unmarshals the payload into v
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Payload, v)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

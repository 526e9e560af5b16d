package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

type EventType string

// Inbound events.
const (
	EventJoinInterview   EventType = "joinInterview"
	EventProblemChange   EventType = "problemChange"
	EventInterviewClosed EventType = "interviewClosed"
	EventPing            EventType = "ping"
	EventWhoAmI          EventType = "whoami"
)

// Outbound events. problemChange and interviewClosed keep their names.
const (
	EventJoinConfirmation EventType = "joinConfirmation"
	EventJoinNotification EventType = "joinNotification"
	EventPong             EventType = "pong"
)

var ErrEmptyEventType = errors.New("event type is empty")

// Envelope is the frame shape in both directions.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// ProblemChange is the payload of an inbound problemChange.
// interviewId is accepted for clients written against the old socket server.
type ProblemChange struct {
	RoomID      RoomID `json:"roomId"`
	InterviewID RoomID `json:"interviewId,omitempty"`
	ProblemKey  string `json:"problemKey"`
}

// Room returns roomId, falling back to interviewId.
func (p ProblemChange) Room() RoomID {
	if p.RoomID != "" {
		return p.RoomID
	}
	return p.InterviewID
}

type WhoAmI struct {
	ConnectionID ConnectionID `json:"connectionId"`
	RoomID       RoomID       `json:"roomId,omitempty"`
}

// DecodeEnvelope parses one inbound frame.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, ErrEmptyEventType
	}
	return env, nil
}

// DecodeRoomID reads a payload that is a bare JSON string.
func DecodeRoomID(raw json.RawMessage) (RoomID, error) {
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return "", fmt.Errorf("decode room id: %w", err)
	}
	return RoomID(id), nil
}

// Encode builds an outbound frame.
func Encode(t EventType, data any) ([]byte, error) {
	return json.Marshal(outbound{Type: t, Data: data})
}

func JoinConfirmation(room RoomID) string {
	return fmt.Sprintf("you've joined room %s", room)
}

func JoinNotification(id ConnectionID, room RoomID) string {
	return fmt.Sprintf("client: %s has joined room %s", id, room)
}

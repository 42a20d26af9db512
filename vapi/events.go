package vapi

import (
	"encoding/json"
	"fmt"
)

// Event is a raw server event read off the call socket.
type Event interface {
	eventType() string
}

type CallStartEvent struct {
	CallID string
}

func (CallStartEvent) eventType() string { return "call-start" }

type CallEndEvent struct {
	Reason string
}

func (CallEndEvent) eventType() string { return "call-end" }

type SpeechStartEvent struct{}

func (SpeechStartEvent) eventType() string { return "speech-start" }

type SpeechEndEvent struct{}

func (SpeechEndEvent) eventType() string { return "speech-end" }

// MessageEvent carries one nested message frame. Kind is the inner
// message type; the server multiplexes several kinds on this envelope
// and transcripts are the only one this client consumes.
type MessageEvent struct {
	Kind           string
	Role           string
	Transcript     string
	TranscriptType string
}

func (MessageEvent) eventType() string { return "message" }

type VolumeLevelEvent struct {
	Level float64
}

func (VolumeLevelEvent) eventType() string { return "volume-level" }

type ErrorEvent struct {
	Message string
}

func (ErrorEvent) eventType() string { return "error" }

// decodeEvent maps one text frame to its event. Frames with an unknown
// envelope type decode to nil so the read loop can skip them.
func decodeEvent(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode frame envelope: %w", err)
	}

	switch envelope.Type {
	case "call-start":
		var frame struct {
			CallID string `json:"callId"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode call-start: %w", err)
		}
		return CallStartEvent{CallID: frame.CallID}, nil
	case "call-end":
		var frame struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode call-end: %w", err)
		}
		return CallEndEvent{Reason: frame.Reason}, nil
	case "speech-start":
		return SpeechStartEvent{}, nil
	case "speech-end":
		return SpeechEndEvent{}, nil
	case "message":
		var frame struct {
			Message struct {
				Type           string `json:"type"`
				Role           string `json:"role"`
				Transcript     string `json:"transcript"`
				TranscriptType string `json:"transcriptType"`
			} `json:"message"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		return MessageEvent{
			Kind:           frame.Message.Type,
			Role:           frame.Message.Role,
			Transcript:     frame.Message.Transcript,
			TranscriptType: frame.Message.TranscriptType,
		}, nil
	case "volume-level":
		var frame struct {
			Level float64 `json:"level"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode volume-level: %w", err)
		}
		return VolumeLevelEvent{Level: frame.Level}, nil
	case "error":
		var frame struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			return nil, fmt.Errorf("decode error: %w", err)
		}
		return ErrorEvent{Message: frame.Error}, nil
	}
	return nil, nil
}

package main

import (
	"testing"

	"sama/vapi"
)

func TestNormalizeEvent(t *testing.T) {
	tests := []struct {
		name string
		raw  vapi.Event
		want Event
	}{
		{"call start", vapi.CallStartEvent{CallID: "c1"}, CallStarted{}},
		{"call end", vapi.CallEndEvent{Reason: "hangup"}, CallEnded{}},
		{"speech start", vapi.SpeechStartEvent{}, SpeechStarted{}},
		{"speech end", vapi.SpeechEndEvent{}, SpeechEnded{}},
		{
			"partial user transcript",
			vapi.MessageEvent{Kind: "transcript", Role: "user", Transcript: "hel", TranscriptType: "partial"},
			Transcript{Role: RoleUser, Text: "hel"},
		},
		{
			"final assistant transcript",
			vapi.MessageEvent{Kind: "transcript", Role: "assistant", Transcript: "hello", TranscriptType: "final"},
			Transcript{Role: RoleAssistant, Text: "hello", Final: true},
		},
		{"volume", vapi.VolumeLevelEvent{Level: 0.3}, Volume{Level: 0.3}},
		{"error", vapi.ErrorEvent{Message: "dropped"}, TransportError{Detail: "dropped"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeEvent(tt.raw)
			if !ok {
				t.Fatal("event unexpectedly dropped")
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNormalizeEventDrops(t *testing.T) {
	tests := []struct {
		name string
		raw  vapi.Event
	}{
		{"non transcript message", vapi.MessageEvent{Kind: "conversation-update"}},
		{"unknown role", vapi.MessageEvent{Kind: "transcript", Role: "system", Transcript: "x", TranscriptType: "final"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ev, ok := normalizeEvent(tt.raw); ok {
				t.Errorf("expected drop, got %#v", ev)
			}
		})
	}
}

func TestNormalizeTranscriptTypeDefaultsToPartial(t *testing.T) {
	raw := vapi.MessageEvent{Kind: "transcript", Role: "user", Transcript: "x", TranscriptType: "interim"}
	got, ok := normalizeEvent(raw)
	if !ok {
		t.Fatal("event unexpectedly dropped")
	}
	if got.(Transcript).Final {
		t.Error("only transcriptType final may close a turn")
	}
}

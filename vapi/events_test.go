package vapi

import "testing"

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
	}{
		{
			name: "call start",
			data: `{"type":"call-start","callId":"c-42"}`,
			want: CallStartEvent{CallID: "c-42"},
		},
		{
			name: "call end",
			data: `{"type":"call-end","reason":"hangup"}`,
			want: CallEndEvent{Reason: "hangup"},
		},
		{
			name: "speech start",
			data: `{"type":"speech-start"}`,
			want: SpeechStartEvent{},
		},
		{
			name: "speech end",
			data: `{"type":"speech-end"}`,
			want: SpeechEndEvent{},
		},
		{
			name: "partial transcript",
			data: `{"type":"message","message":{"type":"transcript","role":"user","transcript":"hel","transcriptType":"partial"}}`,
			want: MessageEvent{Kind: "transcript", Role: "user", Transcript: "hel", TranscriptType: "partial"},
		},
		{
			name: "final transcript",
			data: `{"type":"message","message":{"type":"transcript","role":"assistant","transcript":"hello there","transcriptType":"final"}}`,
			want: MessageEvent{Kind: "transcript", Role: "assistant", Transcript: "hello there", TranscriptType: "final"},
		},
		{
			name: "non transcript message",
			data: `{"type":"message","message":{"type":"conversation-update"}}`,
			want: MessageEvent{Kind: "conversation-update"},
		},
		{
			name: "volume",
			data: `{"type":"volume-level","level":0.42}`,
			want: VolumeLevelEvent{Level: 0.42},
		},
		{
			name: "error",
			data: `{"type":"error","error":"session expired"}`,
			want: ErrorEvent{Message: "session expired"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEvent([]byte(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeEventUnknownType(t *testing.T) {
	got, err := decodeEvent([]byte(`{"type":"model-output","output":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil event for unknown type, got %#v", got)
	}
}

func TestDecodeEventMalformed(t *testing.T) {
	if _, err := decodeEvent([]byte(`{`)); err == nil {
		t.Error("expected error for malformed frame")
	}
}

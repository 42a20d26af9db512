package vapi

import (
	"context"
	"errors"
	"testing"
)

func TestFakeCallPlaysScriptInOrder(t *testing.T) {
	script := []ScriptStep{
		{Event: SpeechStartEvent{}},
		{Event: MessageEvent{Kind: "transcript", Role: "assistant", Transcript: "hi", TranscriptType: "final"}},
		{Event: CallEndEvent{Reason: "done"}},
	}
	conn := NewFake(script, nil)
	call, err := conn.NewCall(context.Background(), CallConfig{AssistantID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	defer call.Close()

	var got []Event
	for ev := range call.Events() {
		got = append(got, ev)
	}
	want := []Event{
		CallStartEvent{CallID: "fake-call"},
		SpeechStartEvent{},
		MessageEvent{Kind: "transcript", Role: "assistant", Transcript: "hi", TranscriptType: "final"},
		CallEndEvent{Reason: "done"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d events, want %d: %#v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %#v, want %#v", i, got[i], want[i])
		}
	}
}

func TestFakeCallStopEndsCall(t *testing.T) {
	conn := NewFake(nil, nil)
	call, err := conn.NewCall(context.Background(), CallConfig{AssistantID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	defer call.Close()

	if ev := <-call.Events(); ev != (CallStartEvent{CallID: "fake-call"}) {
		t.Fatalf("expected call-start first, got %#v", ev)
	}
	call.Stop()
	if _, ok := (<-call.Events()).(CallEndEvent); !ok {
		t.Error("expected call-end after stop")
	}
	if _, open := <-call.Events(); open {
		t.Error("expected stream closed after call end")
	}
	if conn.Calls() != 1 {
		t.Errorf("got %d calls, want 1", conn.Calls())
	}
}

func TestFakeCallCountsFedAudio(t *testing.T) {
	conn := NewFake(nil, nil)
	call, err := conn.NewCall(context.Background(), CallConfig{AssistantID: "a"})
	if err != nil {
		t.Fatal(err)
	}
	defer call.Close()

	call.Feed(make([]byte, 320))
	call.Feed(make([]byte, 320))
	if got := call.(*fakeCall).FedBytes(); got != 640 {
		t.Errorf("got %d fed bytes, want 640", got)
	}
}

func TestFakeConnectorStartError(t *testing.T) {
	wantErr := errors.New("no capacity")
	conn := NewFake(nil, wantErr)
	if _, err := conn.NewCall(context.Background(), CallConfig{AssistantID: "a"}); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

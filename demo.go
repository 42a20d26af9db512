package main

import (
	"time"

	"sama/vapi"
)

// demoConnector plays a canned conversation through the fake transport:
// no network, no API key, real rendering. The script leaves the call
// open at the end so hanging up and redialing can be tried by hand.
func demoConnector() *vapi.FakeConnector {
	return vapi.NewFake(demoScript(), nil)
}

func demoScript() []vapi.ScriptStep {
	var steps []vapi.ScriptStep

	add := func(delay time.Duration, ev vapi.Event) {
		steps = append(steps, vapi.ScriptStep{Delay: delay, Event: ev})
	}

	assistantSays := func(partial, final string) {
		add(600*time.Millisecond, vapi.SpeechStartEvent{})
		add(150*time.Millisecond, vapi.MessageEvent{Kind: "transcript", Role: "assistant", Transcript: partial, TranscriptType: "partial"})
		for _, lv := range []float64{0.28, 0.55, 0.72, 0.61, 0.44, 0.30} {
			add(140*time.Millisecond, vapi.VolumeLevelEvent{Level: lv})
		}
		add(200*time.Millisecond, vapi.MessageEvent{Kind: "transcript", Role: "assistant", Transcript: final, TranscriptType: "final"})
		add(120*time.Millisecond, vapi.SpeechEndEvent{})
		add(80*time.Millisecond, vapi.VolumeLevelEvent{Level: 0.05})
	}

	userSays := func(partial, final string) {
		add(1500*time.Millisecond, vapi.MessageEvent{Kind: "transcript", Role: "user", Transcript: partial, TranscriptType: "partial"})
		add(900*time.Millisecond, vapi.MessageEvent{Kind: "transcript", Role: "user", Transcript: final, TranscriptType: "final"})
	}

	assistantSays("Hi, this is Sama.",
		"Hi, this is Sama. How are you feeling today?")
	userSays("I've been",
		"I've been pretty stressed with work lately.")
	// non-transcript kinds ride the same stream and must be ignored
	add(100*time.Millisecond, vapi.MessageEvent{Kind: "status-update", Role: "system"})
	assistantSays("That sounds heavy.",
		"That sounds heavy. When the pressure spikes, where do you feel it first?")
	userSays("mostly my",
		"Mostly my shoulders, and I sleep badly.")
	assistantSays("Let's try something small tonight.",
		"Let's try something small tonight: a four-seven-eight breath before bed. In for four, hold for seven, out for eight.")
	userSays("okay",
		"Okay, I can try that.")
	assistantSays("Good.",
		"Good. Start with three rounds and notice how your shoulders sit afterwards. I'm here whenever you want to talk.")

	return steps
}

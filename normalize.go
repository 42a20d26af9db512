package main

import (
	"sama/log"
	"sama/vapi"
)

// normalizeEvent maps a raw wire event to its domain event. It returns
// false for events the session layer should never see: non-transcript
// messages and transcripts with a role we do not know. Neither is a
// fault, the stream carries kinds this client has no use for.
func normalizeEvent(raw vapi.Event) (Event, bool) {
	switch e := raw.(type) {
	case vapi.CallStartEvent:
		return CallStarted{}, true
	case vapi.CallEndEvent:
		return CallEnded{}, true
	case vapi.SpeechStartEvent:
		return SpeechStarted{}, true
	case vapi.SpeechEndEvent:
		return SpeechEnded{}, true
	case vapi.MessageEvent:
		if e.Kind != "transcript" {
			return nil, false
		}
		role, ok := parseRole(e.Role)
		if !ok {
			log.Warnf("transcript with unknown role %q dropped", e.Role)
			return nil, false
		}
		return Transcript{
			Role:  role,
			Text:  e.Transcript,
			Final: e.TranscriptType == "final",
		}, true
	case vapi.VolumeLevelEvent:
		return Volume{Level: e.Level}, true
	case vapi.ErrorEvent:
		return TransportError{Detail: e.Message}, true
	}
	return nil, false
}

func parseRole(s string) (Role, bool) {
	switch s {
	case "user":
		return RoleUser, true
	case "assistant":
		return RoleAssistant, true
	}
	return 0, false
}

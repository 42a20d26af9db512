package main

// Event is the closed set of domain events produced by the normalizer.
// They double as Bubble Tea messages: the call pump feeds them straight
// into the update loop, which preserves arrival order.
type Event interface{ callEvent() }

// Role identifies which side of the conversation an utterance belongs to.
type Role int

const (
	RoleUser Role = iota
	RoleAssistant
)

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	}
	return "unknown"
}

// CallStarted signals the remote side accepted the call and it is live.
type CallStarted struct{}

// CallEnded signals the transport has released the call.
type CallEnded struct{}

// SpeechStarted marks the assistant becoming audibly active.
type SpeechStarted struct{}

// SpeechEnded marks the assistant going quiet.
type SpeechEnded struct{}

// Transcript carries one transcription update. Partials for the same
// role replace each other; Final closes the utterance turn.
type Transcript struct {
	Role  Role
	Text  string
	Final bool
}

// Volume is a raw agent audio energy sample, nominally in [0,1].
type Volume struct {
	Level float64
}

// TransportError surfaces a mid-call fault from the call layer.
type TransportError struct {
	Detail string
}

func (CallStarted) callEvent()    {}
func (CallEnded) callEvent()      {}
func (SpeechStarted) callEvent()  {}
func (SpeechEnded) callEvent()    {}
func (Transcript) callEvent()     {}
func (Volume) callEvent()         {}
func (TransportError) callEvent() {}

package main

// Phase is the call lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// TranscriptEntry is one utterance turn. Open entries are still being
// revised by partial updates; closed entries are settled.
type TranscriptEntry struct {
	Role Role
	Text string
	Open bool
}

const noOpen = -1

// callSession owns the call lifecycle and the ordered transcript.
// Events are applied one at a time on the update goroutine, in arrival
// order, so no locking is needed.
//
// open holds the entries index of the in-progress turn per role. Two
// fixed slots, not a map: at most one open turn per role, enforced
// structurally.
type callSession struct {
	phase     Phase
	entries   []TranscriptEntry
	open      [2]int
	speaking  bool
	errDetail string
}

func newCallSession() *callSession {
	return &callSession{open: [2]int{noOpen, noOpen}}
}

// RequestStart reports whether the caller should issue the start
// control call. Valid from Idle and from Error, which is resettable by
// retrying; retry is always a manual user action.
func (s *callSession) RequestStart() bool {
	if s.phase != PhaseIdle && s.phase != PhaseError {
		return false
	}
	s.phase = PhaseConnecting
	s.errDetail = ""
	return true
}

// StartFailed records a rejected start control call. A stale rejection
// landing after the call already started or ended is ignored.
func (s *callSession) StartFailed(reason string) {
	if s.phase != PhaseConnecting {
		return
	}
	s.phase = PhaseError
	s.errDetail = reason
}

// RequestStop reports whether the caller should issue the stop control
// call. The phase does not change here: Idle is reached only via the
// subsequent CallEnded event, because the remote side is authoritative
// about when the transport has actually released.
func (s *callSession) RequestStop() bool {
	return s.phase != PhaseIdle
}

// Apply dispatches one domain event.
func (s *callSession) Apply(ev Event) {
	switch e := ev.(type) {
	case CallStarted:
		s.phase = PhaseConnected
		s.entries = nil
		s.open = [2]int{noOpen, noOpen}
		s.speaking = false
		s.errDetail = ""
	case CallEnded:
		if s.phase == PhaseIdle {
			return
		}
		s.phase = PhaseIdle
		s.closeOpenEntries()
		s.speaking = false
	case SpeechStarted:
		s.speaking = true
	case SpeechEnded:
		s.speaking = false
	case Transcript:
		s.applyTranscript(e)
	case TransportError:
		s.phase = PhaseError
		s.errDetail = e.Detail
	}
}

func (s *callSession) applyTranscript(t Transcript) {
	idx := s.open[t.Role]
	if idx == noOpen {
		s.entries = append(s.entries, TranscriptEntry{Role: t.Role, Text: t.Text, Open: true})
		idx = len(s.entries) - 1
		s.open[t.Role] = idx
	} else {
		// last write wins, partials are not merged
		s.entries[idx].Text = t.Text
	}
	if t.Final {
		s.entries[idx].Open = false
		s.open[t.Role] = noOpen
	}
}

// closeOpenEntries settles any in-progress turns, retaining their
// last-known text. No synthetic final is emitted.
func (s *callSession) closeOpenEntries() {
	for role, idx := range s.open {
		if idx != noOpen {
			s.entries[idx].Open = false
			s.open[role] = noOpen
		}
	}
}

func (s *callSession) Phase() Phase               { return s.phase }
func (s *callSession) Entries() []TranscriptEntry { return s.entries }
func (s *callSession) Speaking() bool             { return s.speaking }
func (s *callSession) Active() bool               { return s.phase == PhaseConnected }

func (s *callSession) StatusLabel() string {
	switch s.phase {
	case PhaseConnecting:
		return "Connecting"
	case PhaseConnected:
		return "Live"
	case PhaseError:
		return "Error"
	}
	return "Ready"
}

func (s *callSession) HintLabel() string {
	switch s.phase {
	case PhaseConnecting:
		return "waiting for the assistant"
	case PhaseConnected:
		return "space to hang up"
	case PhaseError:
		if s.errDetail != "" {
			return s.errDetail + " (space to retry)"
		}
		return "space to retry"
	}
	return "space to talk"
}

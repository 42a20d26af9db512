package main

import "testing"

func apply(s *callSession, evs ...Event) {
	for _, ev := range evs {
		s.Apply(ev)
	}
}

// connected returns a session mid-call, the common starting point.
func connected(t *testing.T) *callSession {
	t.Helper()
	s := newCallSession()
	if !s.RequestStart() {
		t.Fatal("RequestStart from Idle should be accepted")
	}
	s.Apply(CallStarted{})
	if s.Phase() != PhaseConnected {
		t.Fatalf("got phase %v, want connected", s.Phase())
	}
	return s
}

func TestPartialThenFinalYieldsOneEntry(t *testing.T) {
	s := connected(t)
	apply(s,
		Transcript{Role: RoleUser, Text: "hel"},
		Transcript{Role: RoleUser, Text: "hell"},
		Transcript{Role: RoleUser, Text: "hello", Final: true},
	)
	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Role != RoleUser || e.Text != "hello" || e.Open {
		t.Errorf("got %+v, want closed user entry %q", e, "hello")
	}
}

func TestFinalWithoutPartial(t *testing.T) {
	s := connected(t)
	s.Apply(Transcript{Role: RoleAssistant, Text: "welcome back", Final: true})
	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Open {
		t.Error("entry created by a final must be closed immediately")
	}
	if entries[0].Text != "welcome back" {
		t.Errorf("got %q, want %q", entries[0].Text, "welcome back")
	}
}

func TestInterleavedRoles(t *testing.T) {
	s := connected(t)
	apply(s,
		Transcript{Role: RoleUser, Text: "I was"},
		Transcript{Role: RoleAssistant, Text: "go"},
		Transcript{Role: RoleUser, Text: "I was wondering"},
		Transcript{Role: RoleAssistant, Text: "go on", Final: true},
		Transcript{Role: RoleUser, Text: "I was wondering about sleep", Final: true},
	)
	entries := s.Entries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Role != RoleUser || entries[0].Text != "I was wondering about sleep" || entries[0].Open {
		t.Errorf("user entry wrong: %+v", entries[0])
	}
	if entries[1].Role != RoleAssistant || entries[1].Text != "go on" || entries[1].Open {
		t.Errorf("assistant entry wrong: %+v", entries[1])
	}
}

func TestCallEndedForcesCloseRetainingText(t *testing.T) {
	s := connected(t)
	apply(s,
		Transcript{Role: RoleUser, Text: "still talki"},
		Transcript{Role: RoleAssistant, Text: "mm"},
		CallEnded{},
	)
	if s.Phase() != PhaseIdle {
		t.Errorf("got phase %v, want idle", s.Phase())
	}
	for _, e := range s.Entries() {
		if e.Open {
			t.Errorf("entry still open after call end: %+v", e)
		}
		if e.Text == "" {
			t.Errorf("entry lost its text: %+v", e)
		}
	}
	if got := s.Entries()[0].Text; got != "still talki" {
		t.Errorf("got %q, want last partial retained", got)
	}
}

func TestRequestStartGuards(t *testing.T) {
	s := newCallSession()
	if !s.RequestStart() {
		t.Fatal("RequestStart from Idle rejected")
	}
	if s.RequestStart() {
		t.Error("RequestStart while Connecting must be a no-op")
	}
	s.Apply(CallStarted{})
	if s.RequestStart() {
		t.Error("RequestStart while Connected must be a no-op")
	}
	if s.Phase() != PhaseConnected {
		t.Errorf("phase drifted to %v", s.Phase())
	}
}

func TestRequestStopNeverTransitions(t *testing.T) {
	s := newCallSession()
	if s.RequestStop() {
		t.Error("RequestStop in Idle must be rejected")
	}
	s.RequestStart()
	if !s.RequestStop() {
		t.Error("RequestStop while Connecting should be accepted")
	}
	if s.Phase() != PhaseConnecting {
		t.Errorf("RequestStop changed phase to %v", s.Phase())
	}
	s.Apply(CallStarted{})
	if !s.RequestStop() {
		t.Error("RequestStop while Connected should be accepted")
	}
	if s.Phase() != PhaseConnected {
		t.Errorf("RequestStop changed phase to %v; only CallEnded may settle it", s.Phase())
	}
}

func TestCallEndedIdempotentWhenIdle(t *testing.T) {
	s := connected(t)
	apply(s, Transcript{Role: RoleUser, Text: "bye", Final: true}, CallEnded{}, CallEnded{})
	if s.Phase() != PhaseIdle {
		t.Errorf("got phase %v, want idle", s.Phase())
	}
	if len(s.Entries()) != 1 {
		t.Errorf("duplicate CallEnded mutated the transcript: %+v", s.Entries())
	}
}

func TestStartFailureThenManualRecovery(t *testing.T) {
	s := newCallSession()
	s.RequestStart()
	s.StartFailed("network")
	if s.Phase() != PhaseError {
		t.Fatalf("got phase %v, want error", s.Phase())
	}
	if s.HintLabel() == "" {
		t.Error("error hint must not be empty")
	}
	if !s.RequestStart() {
		t.Fatal("RequestStart from Error must be accepted")
	}
	if s.Phase() != PhaseConnecting {
		t.Errorf("got phase %v, want connecting", s.Phase())
	}
}

func TestStaleStartFailureIgnored(t *testing.T) {
	s := connected(t)
	s.StartFailed("late rejection")
	if s.Phase() != PhaseConnected {
		t.Errorf("stale start failure moved phase to %v", s.Phase())
	}
}

func TestTransportErrorKeepsTranscript(t *testing.T) {
	s := connected(t)
	apply(s,
		Transcript{Role: RoleUser, Text: "as I was say"},
		TransportError{Detail: "network dropped"},
	)
	if s.Phase() != PhaseError {
		t.Fatalf("got phase %v, want error", s.Phase())
	}
	entries := s.Entries()
	if len(entries) != 1 || entries[0].Text != "as I was say" {
		t.Errorf("transport error mutated transcript: %+v", entries)
	}
}

func TestCallStartedClearsPreviousCall(t *testing.T) {
	s := connected(t)
	apply(s, Transcript{Role: RoleUser, Text: "first call", Final: true}, CallEnded{})
	s.RequestStart()
	s.Apply(CallStarted{})
	if len(s.Entries()) != 0 {
		t.Errorf("new call kept old transcript: %+v", s.Entries())
	}
	if s.Speaking() {
		t.Error("speaking flag leaked into new call")
	}
}

func TestSpeakingFlag(t *testing.T) {
	s := connected(t)
	s.Apply(SpeechStarted{})
	if !s.Speaking() {
		t.Error("expected speaking after speech-start")
	}
	s.Apply(SpeechEnded{})
	if s.Speaking() {
		t.Error("expected quiet after speech-end")
	}
	s.Apply(SpeechStarted{})
	s.Apply(CallEnded{})
	if s.Speaking() {
		t.Error("call end must clear the speaking flag")
	}
}

func TestFullScenario(t *testing.T) {
	s := newCallSession()
	if !s.RequestStart() {
		t.Fatal("start rejected")
	}
	s.Apply(CallStarted{})
	if s.Phase() != PhaseConnected {
		t.Fatalf("got phase %v, want connected", s.Phase())
	}
	s.Apply(Transcript{Role: RoleUser, Text: "hel"})
	entries := s.Entries()
	if len(entries) != 1 || !entries[0].Open || entries[0].Text != "hel" {
		t.Fatalf("after partial: %+v", entries)
	}
	s.Apply(Transcript{Role: RoleUser, Text: "hello", Final: true})
	entries = s.Entries()
	if len(entries) != 1 || entries[0].Open || entries[0].Text != "hello" {
		t.Fatalf("after final: %+v", entries)
	}
	s.Apply(CallEnded{})
	if s.Phase() != PhaseIdle {
		t.Errorf("got phase %v, want idle", s.Phase())
	}
	for _, e := range s.Entries() {
		if e.Open {
			t.Errorf("open entry survived call end: %+v", e)
		}
	}
}

func TestLabelsPerPhase(t *testing.T) {
	tests := []struct {
		name       string
		setup      func() *callSession
		wantStatus string
	}{
		{"idle", newCallSession, "Ready"},
		{"connecting", func() *callSession {
			s := newCallSession()
			s.RequestStart()
			return s
		}, "Connecting"},
		{"connected", func() *callSession {
			s := newCallSession()
			s.RequestStart()
			s.Apply(CallStarted{})
			return s
		}, "Live"},
		{"error", func() *callSession {
			s := newCallSession()
			s.RequestStart()
			s.StartFailed("boom")
			return s
		}, "Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.setup()
			if got := s.StatusLabel(); got != tt.wantStatus {
				t.Errorf("got %q, want %q", got, tt.wantStatus)
			}
			if s.HintLabel() == "" {
				t.Error("hint must never be empty")
			}
		})
	}
}

package store

import (
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryKeepsConversationOrder(t *testing.T) {
	s := openTestStore(t)
	turns := []struct{ role, content string }{
		{"user", "hello"},
		{"assistant", "hi there"},
		{"user", "how are you"},
		{"assistant", "well, thanks"},
	}
	for _, turn := range turns {
		if err := s.Add("call-1", turn.role, turn.content); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	got, err := s.History("call-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != len(turns) {
		t.Fatalf("expected %d messages, got %d", len(turns), len(got))
	}
	for i, turn := range turns {
		if got[i].Role != turn.role || got[i].Content != turn.content {
			t.Fatalf("message %d: got %s/%q, want %s/%q",
				i, got[i].Role, got[i].Content, turn.role, turn.content)
		}
	}
}

func TestHistoryIsolatedPerCall(t *testing.T) {
	s := openTestStore(t)
	if err := s.Add("call-a", "user", "first call"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add("call-b", "user", "second call"); err != nil {
		t.Fatalf("add: %v", err)
	}

	a, err := s.History("call-a")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(a) != 1 || a[0].Content != "first call" {
		t.Fatalf("unexpected history for call-a: %+v", a)
	}

	empty, err := s.History("call-c")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty history for unknown call, got %d", len(empty))
	}
}

func TestClearCall(t *testing.T) {
	s := openTestStore(t)
	s.Add("call-a", "user", "keep me out")
	s.Add("call-b", "user", "keep me in")

	if err := s.ClearCall("call-a"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	a, _ := s.History("call-a")
	if len(a) != 0 {
		t.Fatalf("expected call-a cleared, got %d messages", len(a))
	}
	b, _ := s.History("call-b")
	if len(b) != 1 {
		t.Fatalf("expected call-b untouched, got %d messages", len(b))
	}
}

func TestCallSummaries(t *testing.T) {
	s := openTestStore(t)
	s.Add("call-a", "user", "one")
	s.Add("call-a", "assistant", "two")
	s.Add("call-b", "user", "three")

	calls, err := s.Calls()
	if err != nil {
		t.Fatalf("calls: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
	if calls[0].CallID != "call-a" || calls[0].Messages != 2 {
		t.Fatalf("unexpected first summary: %+v", calls[0])
	}
	if calls[1].CallID != "call-b" || calls[1].Messages != 1 {
		t.Fatalf("unexpected second summary: %+v", calls[1])
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Add("call-1", "user", "persist me"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	got, err := s2.History("call-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(got) != 1 || got[0].Content != "persist me" {
		t.Fatalf("unexpected history after reopen: %+v", got)
	}
}

package store

import (
	"testing"

	"github.com/cwaldbieser/slack-tui/pkg/models"
)

func TestReactionDeltaLifecycle(t *testing.T) {
	s := newStore(t)
	if err := s.UpsertMessage("C1", "1.1", models.Message{TS: "1.1", Text: "hi"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := s.ApplyReactionDelta("C1", "1.1", "eyes", 1, "U1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.ApplyReactionDelta("C1", "1.1", "eyes", 1, "U2"); err != nil {
		t.Fatalf("add second: %v", err)
	}
	m, err := s.GetMessage("C1", "1.1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	i := m.FindReaction("eyes")
	if i < 0 {
		t.Fatal("reaction missing")
	}
	if m.Reactions[i].Count != 2 || len(m.Reactions[i].Users) != 2 {
		t.Fatalf("unexpected reaction: %+v", m.Reactions[i])
	}

	if err := s.ApplyReactionDelta("C1", "1.1", "eyes", -1, "U1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	m, _ = s.GetMessage("C1", "1.1")
	i = m.FindReaction("eyes")
	if i < 0 || m.Reactions[i].Count != 1 {
		t.Fatalf("unexpected reaction after remove: %+v", m.Reactions)
	}
	if containsUser(m.Reactions[i].Users, "U1") {
		t.Fatal("U1 still listed after removal")
	}

	// dropping to zero deletes the entry
	if err := s.ApplyReactionDelta("C1", "1.1", "eyes", -1, "U2"); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	m, _ = s.GetMessage("C1", "1.1")
	if m.FindReaction("eyes") >= 0 {
		t.Fatalf("reaction survived at zero count: %+v", m.Reactions)
	}
}

func TestReactionDeltaMissingMessageIsNoop(t *testing.T) {
	s := newStore(t)
	if err := s.ApplyReactionDelta("C1", "9.9", "eyes", 1, "U1"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestReactionDeltaRemoveAbsentIsNoop(t *testing.T) {
	s := newStore(t)
	if err := s.UpsertMessage("C1", "1.1", models.Message{TS: "1.1"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.ApplyReactionDelta("C1", "1.1", "wave", -1, "U1"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
	m, _ := s.GetMessage("C1", "1.1")
	if len(m.Reactions) != 0 {
		t.Fatalf("unexpected reactions: %+v", m.Reactions)
	}
}

package syncer

import (
	"context"
	"testing"

	"github.com/cwaldbieser/slack-tui/pkg/models"
)

func TestPostMessageDelegatesToRemote(t *testing.T) {
	rc := &fakeRemote{}
	s, _ := newScheduler(t, rc)
	if err := s.PostMessage(context.Background(), "C1", "hello"); err != nil {
		t.Fatalf("post: %v", err)
	}
	if len(rc.posted) != 1 || rc.posted[0] != "C1:hello" {
		t.Fatalf("unexpected posts: %v", rc.posted)
	}
}

func TestAddReactionUpdatesLocalRow(t *testing.T) {
	rc := &fakeRemote{}
	s, st := newScheduler(t, rc)
	if err := st.UpsertMessage("C1", "1.1", models.Message{TS: "1.1", Text: "hi"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := s.AddReaction(context.Background(), "C1", "1.1", "eyes", "U1"); err != nil {
		t.Fatalf("add reaction: %v", err)
	}
	if len(rc.reactions) != 1 || rc.reactions[0] != "add:C1:1.1:eyes" {
		t.Fatalf("remote not called: %v", rc.reactions)
	}
	m, err := st.GetMessage("C1", "1.1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	i := m.FindReaction("eyes")
	if i < 0 || m.Reactions[i].Count != 1 {
		t.Fatalf("local row not updated: %+v", m.Reactions)
	}

	if err := s.RemoveReaction(context.Background(), "C1", "1.1", "eyes", "U1"); err != nil {
		t.Fatalf("remove reaction: %v", err)
	}
	m, _ = st.GetMessage("C1", "1.1")
	if m.FindReaction("eyes") >= 0 {
		t.Fatalf("reaction survived removal: %+v", m.Reactions)
	}
}

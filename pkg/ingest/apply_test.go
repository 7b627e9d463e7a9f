package ingest

import (
	"testing"

	"github.com/cwaldbieser/slack-tui/pkg/models"
	"github.com/cwaldbieser/slack-tui/pkg/remote"
	"github.com/cwaldbieser/slack-tui/pkg/store"
)

func newApplier(t *testing.T) (*Applier, *store.Store, *[]string) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	var notified []string
	a := &Applier{Store: st, Notify: func(ch string) { notified = append(notified, ch) }}
	return a, st, &notified
}

func TestApplyMessageEvent(t *testing.T) {
	a, st, notified := newApplier(t)
	op := &Op{
		Kind:    remote.EventMessageCreated,
		Channel: "C1",
		TS:      "1700000000.000100",
		Payload: []byte(`{"ts":"1700000000.000100","user":"U1","text":"hi","team":"T1"}`),
	}
	if err := a.Apply(op); err != nil {
		t.Fatalf("apply: %v", err)
	}
	m, err := st.GetMessage("C1", "1700000000.000100")
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if m.Text != "hi" || m.User != "U1" {
		t.Fatalf("unexpected message: %+v", m)
	}
	read, err := st.GetChannelReadState("C1")
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if read {
		t.Fatal("new message must mark channel unread")
	}
	if len(*notified) != 1 || (*notified)[0] != "C1" {
		t.Fatalf("unexpected notifications: %v", *notified)
	}
}

func TestApplyReactionEvents(t *testing.T) {
	a, st, _ := newApplier(t)
	if err := st.UpsertMessage("C1", "1.1", models.Message{TS: "1.1", Text: "hi"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	add := &Op{Kind: remote.EventReactionAdded, Channel: "C1", TS: "1.1", Reaction: "eyes", User: "U2"}
	if err := a.Apply(add); err != nil {
		t.Fatalf("apply add: %v", err)
	}
	m, _ := st.GetMessage("C1", "1.1")
	if i := m.FindReaction("eyes"); i < 0 || m.Reactions[i].Count != 1 {
		t.Fatalf("reaction not applied: %+v", m.Reactions)
	}
	rm := &Op{Kind: remote.EventReactionRemoved, Channel: "C1", TS: "1.1", Reaction: "eyes", User: "U2"}
	if err := a.Apply(rm); err != nil {
		t.Fatalf("apply remove: %v", err)
	}
	m, _ = st.GetMessage("C1", "1.1")
	if m.FindReaction("eyes") >= 0 {
		t.Fatalf("reaction not removed: %+v", m.Reactions)
	}
}

func TestApplyUnknownKind(t *testing.T) {
	a, _, notified := newApplier(t)
	if err := a.Apply(&Op{Kind: "channel_renamed", Channel: "C1"}); err == nil {
		t.Fatal("expected error for unknown kind")
	}
	if len(*notified) != 0 {
		t.Fatalf("failed apply must not notify: %v", *notified)
	}
}

package digest

import (
	"testing"

	"github.com/cwaldbieser/slack-tui/pkg/models"
)

func TestBytesMemberOrderInvariant(t *testing.T) {
	a, err := Bytes([]byte(`{"user":"U1","text":"hello","ts":"1.1"}`))
	if err != nil {
		t.Fatalf("digest a: %v", err)
	}
	b, err := Bytes([]byte(`{"ts":"1.1","text":"hello","user":"U1"}`))
	if err != nil {
		t.Fatalf("digest b: %v", err)
	}
	if a != b {
		t.Fatalf("digests differ for reordered members: %s vs %s", a, b)
	}
}

func TestBytesValueSensitive(t *testing.T) {
	a, err := Bytes([]byte(`{"text":"hello"}`))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	b, err := Bytes([]byte(`{"text":"hello!"}`))
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if a == b {
		t.Fatal("digests equal for different payloads")
	}
}

func TestBytesInvalidJSON(t *testing.T) {
	if _, err := Bytes([]byte(`not json`)); err == nil {
		t.Fatal("expected error")
	}
}

func TestMessageDigestMovesOnReactionChange(t *testing.T) {
	m := models.Message{TS: "1.1", Text: "hi"}
	d1, err := Message(m)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	m.Reactions = []models.Reaction{{Name: "eyes", Count: 1, Users: []string{"U1"}}}
	d2, err := Message(m)
	if err != nil {
		t.Fatalf("digest: %v", err)
	}
	if d1 == d2 {
		t.Fatal("reaction change did not move the digest")
	}
}

package models

import (
	"encoding/json"
	"testing"
)

func TestNormalizeMessageDropsUnknownAttributes(t *testing.T) {
	raw := []byte(`{"ts":"1700000000.000100","user":"U1","text":"hi","team":"T1","client_msg_id":"abc","latest_reply":"x"}`)
	m, err := NormalizeMessage(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if m.TS != "1700000000.000100" || m.User != "U1" || m.Text != "hi" {
		t.Fatalf("unexpected message: %+v", m)
	}
	// re-marshal and verify dropped keys are gone
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"team", "client_msg_id", "latest_reply"} {
		if _, ok := back[k]; ok {
			t.Fatalf("attribute %q survived normalization", k)
		}
	}
}

func TestNormalizeMessageStripsBlockIDs(t *testing.T) {
	raw := []byte(`{"ts":"1.1","blocks":[{"type":"rich_text","block_id":"abc","elements":[]},{"type":"section","block_id":"def"}]}`)
	m, err := NormalizeMessage(raw)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if len(m.Blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(m.Blocks))
	}
	for i, b := range m.Blocks {
		var blk map[string]json.RawMessage
		if err := json.Unmarshal(b, &blk); err != nil {
			t.Fatalf("block %d: %v", i, err)
		}
		if _, ok := blk["block_id"]; ok {
			t.Fatalf("block %d retained block_id", i)
		}
	}
}

func TestNormalizeMessageMissingTS(t *testing.T) {
	if _, err := NormalizeMessage([]byte(`{"user":"U1","text":"hi"}`)); err == nil {
		t.Fatal("expected error for payload without ts")
	}
}

func TestNormalizeMessageInvalidJSON(t *testing.T) {
	if _, err := NormalizeMessage([]byte(`{`)); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestFindReaction(t *testing.T) {
	m := Message{Reactions: []Reaction{
		{Name: "thumbsup", Count: 2, Users: []string{"U1", "U2"}},
		{Name: "eyes", Count: 1, Users: []string{"U3"}},
	}}
	if i := m.FindReaction("eyes"); i != 1 {
		t.Fatalf("expected index 1, got %d", i)
	}
	if i := m.FindReaction("wave"); i != -1 {
		t.Fatalf("expected -1, got %d", i)
	}
}

func TestChannelExtraRoundTrip(t *testing.T) {
	raw := []byte(`{"id":"C1","name":"general","is_channel":true,"topic":{"value":"t"},"num_members":7}`)
	ch, err := DecodeChannel(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ch.ID != "C1" || ch.Name != "general" || !ch.IsChannel {
		t.Fatalf("unexpected channel: %+v", ch)
	}
	if _, ok := ch.Extra["topic"]; !ok {
		t.Fatal("topic not retained in extra")
	}
	b, err := json.Marshal(ch)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := DecodeChannel(b)
	if err != nil {
		t.Fatalf("decode round trip: %v", err)
	}
	if string(back.Extra["num_members"]) != "7" {
		t.Fatalf("num_members lost: %+v", back.Extra)
	}
}

func TestDecodeChannelMissingID(t *testing.T) {
	if _, err := DecodeChannel([]byte(`{"name":"x"}`)); err == nil {
		t.Fatal("expected error for channel without id")
	}
}

func TestUserHidden(t *testing.T) {
	cases := []struct {
		u    User
		want bool
	}{
		{User{ID: "U1"}, false},
		{User{ID: "U2", Deleted: true}, true},
		{User{ID: "U3", IsBot: true}, true},
	}
	for _, c := range cases {
		if got := c.u.Hidden(); got != c.want {
			t.Fatalf("Hidden(%+v) = %v, want %v", c.u, got, c.want)
		}
	}
}

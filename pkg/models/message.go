package models

import (
	"encoding/json"
	"fmt"
)

// Reaction is one emoji reaction on a message: the emoji code, the total
// count and the set of reacting users.
type Reaction struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users,omitempty"`
}

// FileRef points at a binary attachment referenced by a message. The bytes
// themselves live in the attachment table, keyed by ID.
type FileRef struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Title    string `json:"title,omitempty"`
	Mimetype string `json:"mimetype,omitempty"`
}

// Message is one entry of a channel's ordered log. TS is the sole ordering
// key: an opaque, lexically sortable token that is unique per channel. It is
// never parsed for ordering, only for display formatting.
type Message struct {
	Type      string            `json:"type,omitempty"`
	User      string            `json:"user,omitempty"`
	TS        string            `json:"ts"`
	Text      string            `json:"text,omitempty"`
	Blocks    []json.RawMessage `json:"blocks,omitempty"`
	Channel   string            `json:"channel,omitempty"`
	Files     []FileRef         `json:"files,omitempty"`
	Reactions []Reaction        `json:"reactions,omitempty"`
}

// messageAttribs is the attribute whitelist of the canonical message form.
// Anything the remote sends outside this list is dropped by normalization so
// digests stay stable across remote-side envelope churn.
var messageAttribs = []string{
	"user", "type", "ts", "text", "blocks", "channel", "files", "reactions",
}

// NormalizeMessage transforms a raw remote message payload into its
// canonical form: whitelisted attributes only, with the volatile block_id
// member stripped from every block. Both the pull path and the push path
// run payloads through here before upserting, so the stored form and any
// freshly fetched form are byte-comparable after canonical serialization.
func NormalizeMessage(raw []byte) (Message, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return Message{}, fmt.Errorf("invalid message json: %w", err)
	}
	kept := make(map[string]json.RawMessage, len(messageAttribs))
	for _, k := range messageAttribs {
		if v, ok := all[k]; ok {
			kept[k] = v
		}
	}
	if _, ok := kept["ts"]; !ok {
		return Message{}, fmt.Errorf("message payload missing ts")
	}
	if blocks, ok := kept["blocks"]; ok {
		nb, err := stripBlockIDs(blocks)
		if err != nil {
			return Message{}, err
		}
		kept["blocks"] = nb
	}
	nb, err := json.Marshal(kept)
	if err != nil {
		return Message{}, err
	}
	var m Message
	if err := json.Unmarshal(nb, &m); err != nil {
		return Message{}, fmt.Errorf("invalid message payload: %w", err)
	}
	return m, nil
}

// stripBlockIDs removes the block_id member from each rich-text block. The
// remote regenerates these ids per delivery, so they must not reach the
// digest.
func stripBlockIDs(raw json.RawMessage) (json.RawMessage, error) {
	var blocks []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("invalid blocks json: %w", err)
	}
	for _, b := range blocks {
		delete(b, "block_id")
	}
	return json.Marshal(blocks)
}

// FindReaction returns the index of the reaction with the given code, or -1.
func (m *Message) FindReaction(code string) int {
	for i, r := range m.Reactions {
		if r.Name == code {
			return i
		}
	}
	return -1
}

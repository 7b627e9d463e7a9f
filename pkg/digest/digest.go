// Package digest computes stable change-detection hashes over message
// payloads. Two payloads hash equal iff they are semantically identical:
// the hash is taken over a canonical serialization that is invariant to
// JSON member order.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/cwaldbieser/slack-tui/pkg/models"
)

// Bytes returns the hex digest of a raw JSON payload. The payload is
// decoded and re-marshaled so map members serialize in sorted key order;
// the incoming member order therefore cannot influence the digest.
func Bytes(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("digest: invalid json: %w", err)
	}
	c, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(c)
	return hex.EncodeToString(sum[:]), nil
}

// Message returns the digest of a message's stored payload. Any meaningful
// mutation (text edit, reaction count change, attachment list change)
// produces a different digest.
func Message(m models.Message) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return Bytes(b)
}

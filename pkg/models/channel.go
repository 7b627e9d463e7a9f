package models

import (
	"encoding/json"
	"fmt"
)

// Channel mirrors one remote conversation. Known fields are declared
// explicitly; everything else the remote sends is retained opaquely in
// Extra so re-syncs never lose attributes the core does not interpret.
type Channel struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	IsChannel bool   `json:"is_channel,omitempty"`
	IsGroup   bool   `json:"is_group,omitempty"`
	IsIM      bool   `json:"is_im,omitempty"`
	IsMPIM    bool   `json:"is_mpim,omitempty"`
	IsPrivate bool   `json:"is_private,omitempty"`
	// User is the owning user of a direct-message channel.
	User string `json:"user,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var channelKnownKeys = []string{
	"id", "name", "is_channel", "is_group", "is_im", "is_mpim", "is_private", "user",
}

// Direct reports whether the channel is a direct-message conversation.
func (c Channel) Direct() bool { return c.IsIM }

// DisplayName returns the name used for ordering and presentation. Direct
// channels have no name upstream, so the owning user id stands in.
func (c Channel) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	if c.IsIM {
		return c.User
	}
	return c.ID
}

func (c Channel) MarshalJSON() ([]byte, error) {
	type alias Channel
	return marshalWithExtra(alias(c), c.Extra)
}

func (c *Channel) UnmarshalJSON(data []byte) error {
	type alias Channel
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extractExtra(data, channelKnownKeys)
	if err != nil {
		return err
	}
	*c = Channel(a)
	c.Extra = extra
	return nil
}

// DecodeChannel parses a raw remote channel payload. A missing id is a
// malformed payload, not a default.
func DecodeChannel(raw []byte) (Channel, error) {
	var c Channel
	if err := json.Unmarshal(raw, &c); err != nil {
		return Channel{}, fmt.Errorf("invalid channel json: %w", err)
	}
	if c.ID == "" {
		return Channel{}, fmt.Errorf("channel payload missing id")
	}
	return c, nil
}

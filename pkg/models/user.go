package models

import (
	"encoding/json"
	"fmt"
)

// Profile holds the nested display fields the remote keeps per user.
type Profile struct {
	RealName    string `json:"real_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// User mirrors one remote user record. Users are overwritten wholesale on
// re-sync and never partially patched.
type User struct {
	ID      string  `json:"id"`
	Name    string  `json:"name,omitempty"`
	Profile Profile `json:"profile,omitempty"`
	TZ      string  `json:"tz,omitempty"`
	Deleted bool    `json:"deleted,omitempty"`
	IsAdmin bool    `json:"is_admin,omitempty"`
	IsBot   bool    `json:"is_bot,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var userKnownKeys = []string{
	"id", "name", "profile", "tz", "deleted", "is_admin", "is_bot",
}

// Hidden reports whether the user should be excluded from channel listings
// (deactivated accounts and bots).
func (u User) Hidden() bool { return u.Deleted || u.IsBot }

func (u User) MarshalJSON() ([]byte, error) {
	type alias User
	return marshalWithExtra(alias(u), u.Extra)
}

func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	extra, err := extractExtra(data, userKnownKeys)
	if err != nil {
		return err
	}
	*u = User(a)
	u.Extra = extra
	return nil
}

// DecodeUser parses a raw remote user payload.
func DecodeUser(raw []byte) (User, error) {
	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return User{}, fmt.Errorf("invalid user json: %w", err)
	}
	if u.ID == "" {
		return User{}, fmt.Errorf("user payload missing id")
	}
	return u, nil
}

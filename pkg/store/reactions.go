package store

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/models"
)

// ApplyReactionDelta adjusts the count of one reaction code on a message by
// delta via read-modify-write on the stored payload. A reaction that is not
// present is created (count 0) when the delta is positive; an entry whose
// count reaches zero is deleted. A missing message is a no-op, not an error.
//
// The whole load/modify/store runs under the store's rmw mutex so a push
// event and a local user action racing on the same row cannot lose updates.
func (s *Store) ApplyReactionDelta(channelID, ts, code string, delta int, user string) error {
	if delta == 0 {
		return nil
	}
	s.rmw.Lock()
	defer s.rmw.Unlock()

	m, err := s.GetMessage(channelID, ts)
	if errors.Is(err, ErrNotFound) {
		logger.Log.Debug("reaction_delta_no_message",
			zap.String("channel", channelID), zap.String("ts", ts), zap.String("code", code))
		return nil
	}
	if err != nil {
		return err
	}

	idx := m.FindReaction(code)
	if idx < 0 {
		if delta < 0 {
			// removing a reaction that was never present
			return nil
		}
		m.Reactions = append(m.Reactions, models.Reaction{Name: code})
		idx = len(m.Reactions) - 1
	}
	r := &m.Reactions[idx]
	r.Count += delta
	if user != "" {
		if delta > 0 {
			if !containsUser(r.Users, user) {
				r.Users = append(r.Users, user)
			}
		} else {
			r.Users = removeUser(r.Users, user)
		}
	}
	if r.Count <= 0 {
		m.Reactions = append(m.Reactions[:idx], m.Reactions[idx+1:]...)
		if len(m.Reactions) == 0 {
			m.Reactions = nil
		}
	}
	return s.UpsertMessage(channelID, ts, m)
}

func containsUser(users []string, u string) bool {
	for _, x := range users {
		if x == u {
			return true
		}
	}
	return false
}

func removeUser(users []string, u string) []string {
	out := users[:0]
	for _, x := range users {
		if x != u {
			out = append(out, x)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

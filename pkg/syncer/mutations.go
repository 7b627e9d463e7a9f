package syncer

import (
	"context"

	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/pkg/logger"
)

// PostMessage sends a text message to a channel. Fire-and-report: the
// failure is returned to the initiating action and not retried; the
// message itself reaches the cache through the push path once the remote
// echoes it back.
func (s *Scheduler) PostMessage(ctx context.Context, channelID, text string) error {
	if err := s.remote.PostMessage(ctx, channelID, text); err != nil {
		logger.Log.Warn("post_message_failed", zap.String("channel", channelID), zap.Error(err))
		return err
	}
	return nil
}

// AddReaction posts a reaction upstream and applies the delta to the local
// row so the next pass reflects it without waiting for the echo event.
func (s *Scheduler) AddReaction(ctx context.Context, channelID, ts, code, user string) error {
	if err := s.remote.AddReaction(ctx, channelID, ts, code); err != nil {
		logger.Log.Warn("add_reaction_failed",
			zap.String("channel", channelID), zap.String("ts", ts), zap.String("code", code), zap.Error(err))
		return err
	}
	if err := s.store.ApplyReactionDelta(channelID, ts, code, 1, user); err != nil {
		return err
	}
	s.Notify(channelID)
	return nil
}

// RemoveReaction is the inverse of AddReaction.
func (s *Scheduler) RemoveReaction(ctx context.Context, channelID, ts, code, user string) error {
	if err := s.remote.RemoveReaction(ctx, channelID, ts, code); err != nil {
		logger.Log.Warn("remove_reaction_failed",
			zap.String("channel", channelID), zap.String("ts", ts), zap.String("code", code), zap.Error(err))
		return err
	}
	if err := s.store.ApplyReactionDelta(channelID, ts, code, -1, user); err != nil {
		return err
	}
	s.Notify(channelID)
	return nil
}

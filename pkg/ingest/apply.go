package ingest

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/models"
	"github.com/cwaldbieser/slack-tui/pkg/remote"
	"github.com/cwaldbieser/slack-tui/pkg/store"
)

// Applier writes push events into the cache store. Every write goes
// through the store's idempotent upsert API, so replayed events are
// harmless. Applier never touches the live view; it only nudges the
// scheduler through Notify after a successful write.
type Applier struct {
	Store *store.Store
	// Notify, when set, is called with the channel id after each applied
	// event so the scheduler can run an out-of-band reconciliation pass.
	Notify func(channelID string)
}

// Apply dispatches one queued event. Failures are logged and returned but
// must not stop the worker loop.
func (a *Applier) Apply(op *Op) error {
	var err error
	switch op.Kind {
	case remote.EventMessageCreated:
		err = a.applyMessage(op)
	case remote.EventReactionAdded:
		err = a.Store.ApplyReactionDelta(op.Channel, op.TS, op.Reaction, 1, op.User)
	case remote.EventReactionRemoved:
		err = a.Store.ApplyReactionDelta(op.Channel, op.TS, op.Reaction, -1, op.User)
	default:
		err = fmt.Errorf("unknown event kind %q", op.Kind)
	}
	if err != nil {
		logger.Log.Error("event_apply_failed",
			zap.String("kind", string(op.Kind)), zap.String("channel", op.Channel),
			zap.String("ts", op.TS), zap.Error(err))
		return err
	}
	eventsApplied.WithLabelValues(string(op.Kind)).Inc()
	if a.Notify != nil && op.Channel != "" {
		a.Notify(op.Channel)
	}
	return nil
}

func (a *Applier) applyMessage(op *Op) error {
	if len(op.Payload) == 0 {
		return fmt.Errorf("empty payload for message event")
	}
	m, err := models.NormalizeMessage(op.Payload)
	if err != nil {
		return err
	}
	channel := op.Channel
	if channel == "" {
		channel = m.Channel
	}
	ts := op.TS
	if ts == "" {
		ts = m.TS
	}
	if err := a.Store.UpsertMessage(channel, ts, m); err != nil {
		return err
	}
	// A new message always flips the channel to unread; selecting the
	// channel flips it back.
	return a.Store.SetChannelReadState(channel, false)
}

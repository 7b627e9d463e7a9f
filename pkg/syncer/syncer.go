// Package syncer owns the two concurrent update paths of the active
// conversation: the periodic pull sync and out-of-band push notifications.
// All live-view mutation happens on the single goroutine running Run;
// background I/O (history pulls, mutation calls) runs on workers that hand
// results back through channels and never touch the view.
package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/pkg/digest"
	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/models"
	"github.com/cwaldbieser/slack-tui/pkg/remote"
	"github.com/cwaldbieser/slack-tui/pkg/store"
	"github.com/cwaldbieser/slack-tui/pkg/view"
)

// State is the scheduler's lifecycle per active conversation.
type State int32

const (
	// StateIdle means no conversation is selected.
	StateIdle State = iota
	// StateSyncing means the initial history pull is in flight.
	StateSyncing
	// StateLive means periodic reconciliation is active.
	StateLive
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSyncing:
		return "syncing"
	case StateLive:
		return "live"
	}
	return "unknown"
}

// Options tune the scheduler.
type Options struct {
	// Interval between periodic reconciliation passes. Defaults to 15s.
	Interval time.Duration
	// HistoryWindowDays bounds the trailing window pulled on conversation
	// selection. Defaults to 30.
	HistoryWindowDays int
	// PatchBuffer sizes the outbound patch-batch channel. Defaults to 16.
	PatchBuffer int
	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func (o *Options) withDefaults() {
	if o.Interval <= 0 {
		o.Interval = 15 * time.Second
	}
	if o.HistoryWindowDays <= 0 {
		o.HistoryWindowDays = 30
	}
	if o.PatchBuffer <= 0 {
		o.PatchBuffer = 16
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// PatchBatch is the result of one reconciliation pass, delivered to the
// presentation layer for mirroring onto its widget state.
type PatchBatch struct {
	Channel  string
	Patches  []view.Patch
	Reanchor bool
}

type syncResult struct {
	channel string
	err     error
}

// Scheduler serializes reconciliation per conversation and keeps the live
// view consistent with the cache store.
type Scheduler struct {
	store  *store.Store
	remote remote.Client
	opts   Options

	view *view.View

	state  atomic.Int32
	active atomic.Value // string

	selectCh chan string
	notifyCh chan string
	syncDone chan syncResult
	patches  chan PatchBatch

	gates sync.Map // channel id -> chan struct{} (capacity-1 semaphore)

	// pulls tracks in-flight history workers so Run does not return,
	// and the store cannot be closed, while one is still writing.
	pulls sync.WaitGroup
}

// New builds a scheduler over the given store and remote client.
func New(st *store.Store, rc remote.Client, opts Options) *Scheduler {
	opts.withDefaults()
	s := &Scheduler{
		store:    st,
		remote:   rc,
		opts:     opts,
		view:     &view.View{},
		selectCh: make(chan string, 4),
		notifyCh: make(chan string, 64),
		syncDone: make(chan syncResult, 1),
		patches:  make(chan PatchBatch, opts.PatchBuffer),
	}
	s.active.Store("")
	return s
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Active returns the id of the active conversation, or "".
func (s *Scheduler) Active() string { return s.active.Load().(string) }

// Patches returns the channel the presentation layer drains for view
// updates. The scheduler's own view copy stays authoritative; a consumer
// that falls behind can resynchronize from Entries.
func (s *Scheduler) Patches() <-chan PatchBatch { return s.patches }

// Entries returns a copy of the live view's current entries.
func (s *Scheduler) Entries() []view.Entry { return s.view.Entries() }

// Select requests a conversation switch. Safe to call from any goroutine.
func (s *Scheduler) Select(channelID string) {
	s.selectCh <- channelID
}

// Notify nudges the scheduler after a push-path cache write. Nudges for
// inactive conversations are ignored by the loop; a saturated nudge
// channel simply coalesces, since a pass reads complete state anyway.
func (s *Scheduler) Notify(channelID string) {
	select {
	case s.notifyCh <- channelID:
	default:
	}
}

// Run is the single-threaded owner loop for the live view. It blocks until
// ctx is canceled and every in-flight history pull has finished, so a
// caller that has seen Run return may safely close the store.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.state.Store(int32(StateIdle))
			s.pulls.Wait()
			return
		case id := <-s.selectCh:
			s.beginSwitch(ctx, id)
		case res := <-s.syncDone:
			s.finishSwitch(res)
		case id := <-s.notifyCh:
			if s.State() == StateLive && id == s.Active() {
				s.runPass(id)
			}
		case <-ticker.C:
			// Ticks during a switch or initial sync are dropped so a
			// steady-state diff never interleaves with partial history
			// writes.
			if s.State() == StateLive {
				if id := s.Active(); id != "" {
					s.runPass(id)
				}
			}
		}
	}
}

// beginSwitch clears the view, marks the conversation read and kicks off
// the bounded history pull on a worker.
func (s *Scheduler) beginSwitch(ctx context.Context, channelID string) {
	prev := s.Active()
	s.active.Store(channelID)
	s.state.Store(int32(StateSyncing))
	if prev != "" {
		logger.Log.Info("conversation_switched",
			zap.String("from", prev), zap.String("to", channelID))
	} else {
		logger.Log.Info("conversation_selected", zap.String("channel", channelID))
	}

	if s.view.Len() > 0 {
		clear := []view.Patch{{Op: view.OpClear}}
		s.view.Apply(clear, false)
		s.publish(PatchBatch{Channel: channelID, Patches: clear})
	}

	if err := s.store.SetChannelReadState(channelID, true); err != nil {
		logger.Log.Error("mark_read_failed", zap.String("channel", channelID), zap.Error(err))
	}

	oldest := s.historyOldest()
	s.pulls.Add(1)
	go func() {
		defer s.pulls.Done()
		err := s.pullHistory(ctx, channelID, oldest)
		select {
		case s.syncDone <- syncResult{channel: channelID, err: err}:
		case <-ctx.Done():
		}
	}()
}

// pullHistory drains the remote history window into the cache store.
// Messages arrive normalized, so upserting them directly keeps the stored
// form canonical.
func (s *Scheduler) pullHistory(ctx context.Context, channelID, oldest string) error {
	msgs, err := s.remote.FetchHistory(ctx, channelID, oldest)
	if err != nil {
		return fmt.Errorf("history pull for %s: %w", channelID, err)
	}
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.TS == "" {
			return fmt.Errorf("history message missing ts in %s", channelID)
		}
		if err := s.store.UpsertMessage(channelID, m.TS, m); err != nil {
			return err
		}
	}
	logger.Log.Info("history_pulled",
		zap.String("channel", channelID), zap.Int("messages", len(msgs)))
	return nil
}

// finishSwitch runs the cold-start pass and enters Live. A failed pull
// still goes Live over whatever the cache already holds; the next periodic
// pass may succeed where this one failed.
func (s *Scheduler) finishSwitch(res syncResult) {
	if res.channel != s.Active() || s.State() != StateSyncing {
		return
	}
	if res.err != nil {
		logger.Log.Warn("initial_sync_failed", zap.String("channel", res.channel), zap.Error(res.err))
	}
	s.state.Store(int32(StateLive))
	s.runPass(res.channel)
}

// runPass executes one reconciliation pass for the conversation, under the
// per-conversation mutual-exclusion gate. A pass already running suppresses
// this one; missed work is dropped, never queued.
func (s *Scheduler) runPass(channelID string) {
	if !s.tryBegin(channelID) {
		reconcilePasses.WithLabelValues("suppressed").Inc()
		logger.Log.Debug("pass_suppressed", zap.String("channel", channelID))
		return
	}
	defer s.end(channelID)

	snapshot, err := s.snapshot(channelID)
	if err != nil {
		reconcilePasses.WithLabelValues("error").Inc()
		logger.Log.Error("snapshot_failed", zap.String("channel", channelID), zap.Error(err))
		return
	}
	patches, reanchor := view.Reconcile(s.view, snapshot)
	if len(patches) == 0 {
		reconcilePasses.WithLabelValues("empty").Inc()
		return
	}
	s.view.Apply(patches, reanchor)
	reconcilePasses.WithLabelValues("applied").Inc()
	patchesEmitted.Add(float64(len(patches)))
	logger.Log.Debug("pass_applied",
		zap.String("channel", channelID), zap.Int("patches", len(patches)),
		zap.Bool("reanchor", reanchor))
	s.publish(PatchBatch{Channel: channelID, Patches: patches, Reanchor: reanchor})
}

// snapshot reads the channel's messages and computes the digest of each,
// producing the store-side input of a reconciliation pass.
func (s *Scheduler) snapshot(channelID string) ([]view.Entry, error) {
	msgs, err := s.store.ListMessages(channelID)
	if err != nil {
		return nil, err
	}
	return SnapshotEntries(msgs)
}

// SnapshotEntries digests an ordered message list into view entries.
func SnapshotEntries(msgs []models.Message) ([]view.Entry, error) {
	out := make([]view.Entry, 0, len(msgs))
	for _, m := range msgs {
		d, err := digest.Message(m)
		if err != nil {
			return nil, err
		}
		out = append(out, view.Entry{TS: m.TS, Digest: d})
	}
	return out, nil
}

func (s *Scheduler) publish(b PatchBatch) {
	select {
	case s.patches <- b:
	default:
		logger.Log.Warn("patch_batch_dropped", zap.String("channel", b.Channel))
	}
}

// historyOldest renders the lower bound of the trailing pull window as a
// timestamp token.
func (s *Scheduler) historyOldest() string {
	t := s.opts.Now().AddDate(0, 0, -s.opts.HistoryWindowDays)
	return fmt.Sprintf("%d.000000", t.Unix())
}

func (s *Scheduler) gate(channelID string) chan struct{} {
	g, _ := s.gates.LoadOrStore(channelID, make(chan struct{}, 1))
	return g.(chan struct{})
}

func (s *Scheduler) tryBegin(channelID string) bool {
	select {
	case s.gate(channelID) <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) end(channelID string) { <-s.gate(channelID) }

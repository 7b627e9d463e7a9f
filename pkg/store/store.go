// Package store is the durable local cache mirroring remote conversation
// state: channels, users, messages and binary attachments, keyed inside one
// Pebble database per workspace. It is the single source of truth for what
// the presentation layer displays.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/models"
)

// ErrNotFound marks the absence of a row. Absence is a normal result, never
// an I/O failure; callers that treat missing rows as no-ops test for it with
// errors.Is.
var ErrNotFound = errors.New("store: not found")

// Store wraps one opened Pebble database. Every method is safe for
// concurrent use from the push path, the pull path and user-initiated
// mutation calls; read-modify-write mutations additionally serialize behind
// the rmw mutex so racing deltas never lose updates.
type Store struct {
	db   *pebble.DB
	path string
	rmw  sync.Mutex
}

// Open opens (or creates) the cache database at path.
func Open(path string) (*Store, error) {
	logger.Log.Info("opening_cache_db", zap.String("path", path))
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Log.Error("cache_open_failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("open cache at %s: %w", path, err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return err
	}
	logger.Log.Info("cache_closed", zap.String("path", s.path))
	return nil
}

// Path returns the on-disk location of the cache.
func (s *Store) Path() string { return s.path }

func chanKey(id string) []byte     { return []byte("channel:" + id) }
func userKey(id string) []byte     { return []byte("user:" + id) }
func readKey(id string) []byte     { return []byte("read:" + id) }
func fileMetaKey(id string) []byte { return []byte("file:" + id + ":meta") }
func fileDataKey(id string) []byte { return []byte("file:" + id + ":data") }

// MsgKey builds the composite message key. The timestamp token sorts
// lexically, so prefix iteration yields ascending time order.
func MsgKey(channelID, ts string) []byte {
	return []byte("msg:" + channelID + ":" + ts)
}

func msgPrefix(channelID string) []byte {
	return []byte("msg:" + channelID + ":")
}

// get copies the value for key, mapping pebble's not-found to ErrNotFound.
func (s *Store) get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	out := append([]byte(nil), v...)
	if closer != nil {
		_ = closer.Close()
	}
	return out, nil
}

// UpsertChannel inserts or replaces a channel by identity. Duplicates never
// fail; the last write wins wholesale.
func (s *Store) UpsertChannel(ch models.Channel) error {
	if ch.ID == "" {
		return fmt.Errorf("upsert channel: empty id")
	}
	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("marshal channel: %w", err)
	}
	if err := s.db.Set(chanKey(ch.ID), data, pebble.Sync); err != nil {
		logger.Log.Error("upsert_channel_failed", zap.String("channel", ch.ID), zap.Error(err))
		return err
	}
	storeWrites.WithLabelValues("channel").Inc()
	return nil
}

// UpsertUser inserts or replaces a user by identity.
func (s *Store) UpsertUser(u models.User) error {
	if u.ID == "" {
		return fmt.Errorf("upsert user: empty id")
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := s.db.Set(userKey(u.ID), data, pebble.Sync); err != nil {
		logger.Log.Error("upsert_user_failed", zap.String("user", u.ID), zap.Error(err))
		return err
	}
	storeWrites.WithLabelValues("user").Inc()
	return nil
}

// GetChannel returns the cached channel or ErrNotFound.
func (s *Store) GetChannel(id string) (models.Channel, error) {
	v, err := s.get(chanKey(id))
	if err != nil {
		return models.Channel{}, err
	}
	var ch models.Channel
	if err := json.Unmarshal(v, &ch); err != nil {
		return models.Channel{}, fmt.Errorf("invalid channel record %s: %w", id, err)
	}
	return ch, nil
}

// GetUser returns the cached user or ErrNotFound.
func (s *Store) GetUser(id string) (models.User, error) {
	v, err := s.get(userKey(id))
	if err != nil {
		return models.User{}, err
	}
	var u models.User
	if err := json.Unmarshal(v, &u); err != nil {
		return models.User{}, fmt.Errorf("invalid user record %s: %w", id, err)
	}
	return u, nil
}

// ChannelFilter selects which channel kinds ListChannels returns.
type ChannelFilter struct {
	// Direct selects direct-message channels when true and ordinary
	// (channel/group/mpim) conversations when false.
	Direct bool
	// SkipHiddenOwners drops direct channels whose owning user is deleted
	// or a bot.
	SkipHiddenOwners bool
}

// ListChannels returns cached channels matching the filter, ordered by
// display name.
func (s *Store) ListChannels(f ChannelFilter) ([]models.Channel, error) {
	all, err := s.ListAllChannels()
	if err != nil {
		return nil, err
	}
	var out []models.Channel
	for _, ch := range all {
		if ch.Direct() != f.Direct {
			continue
		}
		if f.Direct && f.SkipHiddenOwners && ch.User != "" {
			u, err := s.GetUser(ch.User)
			if err == nil && u.Hidden() {
				continue
			}
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
		}
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DisplayName() < out[j].DisplayName()
	})
	return out, nil
}

// ListAllChannels returns every cached channel, unordered.
func (s *Store) ListAllChannels() ([]models.Channel, error) {
	prefix := []byte("channel:")
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Channel
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		v := append([]byte(nil), iter.Value()...)
		var ch models.Channel
		if err := json.Unmarshal(v, &ch); err != nil {
			return nil, fmt.Errorf("invalid channel record %s: %w", string(iter.Key()), err)
		}
		out = append(out, ch)
	}
	return out, iter.Error()
}

// UpsertMessage inserts or replaces the message at (channelID, ts). The row
// is replaced wholesale; there is no merge, and the call is safe to issue
// concurrently from the push and pull paths for the same key.
func (s *Store) UpsertMessage(channelID, ts string, m models.Message) error {
	if channelID == "" || ts == "" {
		return fmt.Errorf("upsert message: empty key (%q, %q)", channelID, ts)
	}
	m.Channel = channelID
	m.TS = ts
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.db.Set(MsgKey(channelID, ts), data, pebble.Sync); err != nil {
		logger.Log.Error("upsert_message_failed",
			zap.String("channel", channelID), zap.String("ts", ts), zap.Error(err))
		return err
	}
	storeWrites.WithLabelValues("message").Inc()
	logger.Log.Debug("message_upserted", zap.String("channel", channelID), zap.String("ts", ts))
	return nil
}

// GetMessage loads one message row or ErrNotFound.
func (s *Store) GetMessage(channelID, ts string) (models.Message, error) {
	v, err := s.get(MsgKey(channelID, ts))
	if err != nil {
		return models.Message{}, err
	}
	var m models.Message
	if err := json.Unmarshal(v, &m); err != nil {
		return models.Message{}, fmt.Errorf("invalid message record %s/%s: %w", channelID, ts, err)
	}
	return m, nil
}

// ListMessages returns every message of a channel in ascending timestamp
// order. The reconciliation engine depends on this ordering invariant.
func (s *Store) ListMessages(channelID string) ([]models.Message, error) {
	prefix := msgPrefix(channelID)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Message
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		v := append([]byte(nil), iter.Value()...)
		var m models.Message
		if err := json.Unmarshal(v, &m); err != nil {
			return nil, fmt.Errorf("invalid message record %s: %w", string(iter.Key()), err)
		}
		out = append(out, m)
	}
	return out, iter.Error()
}

// DeleteMessagesBefore removes all messages of a channel whose timestamp
// sorts lexically below cutoffTS. Used by the retention job; returns the
// number of rows removed.
func (s *Store) DeleteMessagesBefore(channelID, cutoffTS string) (int, error) {
	prefix := msgPrefix(channelID)
	iter, err := s.db.NewIter(&pebble.IterOptions{})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	batch := s.db.NewBatch()
	n := 0
	for iter.SeekGE(prefix); iter.Valid(); iter.Next() {
		if !bytes.HasPrefix(iter.Key(), prefix) {
			break
		}
		ts := string(iter.Key()[len(prefix):])
		if ts >= cutoffTS {
			break
		}
		if err := batch.Delete(append([]byte(nil), iter.Key()...), nil); err != nil {
			_ = batch.Close()
			return 0, err
		}
		n++
	}
	if err := iter.Error(); err != nil {
		_ = batch.Close()
		return 0, err
	}
	if n == 0 {
		_ = batch.Close()
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	logger.Log.Info("messages_pruned",
		zap.String("channel", channelID), zap.String("cutoff", cutoffTS), zap.Int("count", n))
	return n, nil
}

// SetChannelReadState records the boolean read/unread flag, independent of
// message content.
func (s *Store) SetChannelReadState(channelID string, isRead bool) error {
	v := []byte("0")
	if isRead {
		v = []byte("1")
	}
	if err := s.db.Set(readKey(channelID), v, pebble.Sync); err != nil {
		logger.Log.Error("set_read_state_failed", zap.String("channel", channelID), zap.Error(err))
		return err
	}
	storeWrites.WithLabelValues("read_state").Inc()
	return nil
}

// GetChannelReadState returns the read flag; channels never marked unread
// report as read.
func (s *Store) GetChannelReadState(channelID string) (bool, error) {
	v, err := s.get(readKey(channelID))
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return string(v) == "1", nil
}

// DumpIter returns a raw iterator over the whole keyspace for inspection
// tooling. The caller must close it.
func (s *Store) DumpIter() (*pebble.Iterator, error) {
	return s.db.NewIter(&pebble.IterOptions{})
}

package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/models"
)

// SaveAttachment persists attachment metadata and bytes atomically. Later
// writes for the same identity are idempotent replacements of identical
// content; attachments are immutable in practice.
func (s *Store) SaveAttachment(meta models.FileMeta, data []byte) error {
	if meta.ID == "" {
		return fmt.Errorf("save attachment: empty id")
	}
	mb, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal attachment meta: %w", err)
	}
	batch := s.db.NewBatch()
	if err := batch.Set(fileMetaKey(meta.ID), mb, nil); err != nil {
		_ = batch.Close()
		return err
	}
	if err := batch.Set(fileDataKey(meta.ID), data, nil); err != nil {
		_ = batch.Close()
		return err
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		logger.Log.Error("save_attachment_failed", zap.String("file", meta.ID), zap.Error(err))
		return err
	}
	storeWrites.WithLabelValues("attachment").Inc()
	logger.Log.Info("attachment_saved",
		zap.String("file", meta.ID), zap.String("name", meta.Name), zap.Int("bytes", len(data)))
	return nil
}

// GetAttachment returns the cached attachment or ErrNotFound when either
// the metadata or the bytes are absent.
func (s *Store) GetAttachment(id string) (models.FileMeta, []byte, error) {
	mb, err := s.get(fileMetaKey(id))
	if err != nil {
		return models.FileMeta{}, nil, err
	}
	var meta models.FileMeta
	if err := json.Unmarshal(mb, &meta); err != nil {
		return models.FileMeta{}, nil, fmt.Errorf("invalid attachment meta %s: %w", id, err)
	}
	data, err := s.get(fileDataKey(id))
	if errors.Is(err, ErrNotFound) {
		return models.FileMeta{}, nil, ErrNotFound
	}
	if err != nil {
		return models.FileMeta{}, nil, err
	}
	return meta, data, nil
}

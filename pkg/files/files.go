// Package files is the content-addressable attachment cache: a
// fetch-or-store wrapper around the store's file table. Attachments are
// immutable once fetched, so there is no expiry or invalidation.
package files

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/remote"
	"github.com/cwaldbieser/slack-tui/pkg/store"
)

// Cache serves attachment bytes from the local store, fetching from the
// remote on miss and persisting before returning. Concurrent requests for
// the same identity collapse to a single in-flight remote fetch.
type Cache struct {
	store  *store.Store
	remote remote.Client
	group  singleflight.Group
}

// New builds an attachment cache over the given store and remote client.
func New(st *store.Store, rc remote.Client) *Cache {
	return &Cache{store: st, remote: rc}
}

type result struct {
	data  []byte
	found bool
}

// Get returns the attachment bytes and whether they are available. A remote
// fetch failure is reported as a miss (found=false, nil error) so callers
// can retry later; only local storage failures surface as errors. Once the
// local write succeeds no further remote fetch is ever issued for that id.
func (c *Cache) Get(ctx context.Context, id string) ([]byte, bool, error) {
	v, err, _ := c.group.Do(id, func() (any, error) {
		_, data, err := c.store.GetAttachment(id)
		if err == nil {
			attachmentFetches.WithLabelValues("hit").Inc()
			return result{data: data, found: true}, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		// Not in the local cache; it must be retrieved.
		meta, data, err := c.remote.FetchAttachment(ctx, id)
		if err != nil {
			attachmentFetches.WithLabelValues("miss").Inc()
			logger.Log.Warn("attachment_fetch_failed", zap.String("file", id), zap.Error(err))
			return result{}, nil
		}
		if err := c.store.SaveAttachment(meta, data); err != nil {
			return nil, err
		}
		attachmentFetches.WithLabelValues("fetched").Inc()
		return result{data: data, found: true}, nil
	})
	if err != nil {
		return nil, false, err
	}
	r := v.(result)
	return r.data, r.found, nil
}

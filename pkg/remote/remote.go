// Package remote declares the boundary contracts the cache core consumes.
// The concrete transport (authentication, pagination, rate limits) lives
// behind these interfaces; pkg/slack carries the reference implementation.
package remote

import (
	"context"
	"errors"

	"github.com/cwaldbieser/slack-tui/pkg/models"
)

// ErrNotFound marks a remote entity that does not exist (as opposed to a
// transport failure).
var ErrNotFound = errors.New("remote: not found")

// Client pulls bulk state from the remote service and posts user-initiated
// mutations. Implementations surface transport failures as errors; partial
// results already delivered are not rolled back.
type Client interface {
	// ListChannels returns every conversation visible to the account.
	ListChannels(ctx context.Context) ([]models.Channel, error)
	// ListUsers returns the workspace's user directory.
	ListUsers(ctx context.Context) ([]models.User, error)
	// FetchHistory returns a channel's messages newer than oldest in
	// ascending timestamp order, with pagination fully drained before
	// returning. Payloads are already normalized to canonical form.
	FetchHistory(ctx context.Context, channelID, oldest string) ([]models.Message, error)
	// FetchAttachment resolves an attachment id to its metadata and bytes,
	// or ErrNotFound.
	FetchAttachment(ctx context.Context, id string) (models.FileMeta, []byte, error)
	// PostMessage sends a text message to a channel. Fire-and-report.
	PostMessage(ctx context.Context, channelID, text string) error
	// AddReaction attaches an emoji reaction to a message.
	AddReaction(ctx context.Context, channelID, ts, code string) error
	// RemoveReaction detaches an emoji reaction from a message.
	RemoveReaction(ctx context.Context, channelID, ts, code string) error
}

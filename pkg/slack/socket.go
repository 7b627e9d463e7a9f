package slack

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/cwaldbieser/slack-tui/pkg/logger"
	"github.com/cwaldbieser/slack-tui/pkg/remote"
)

// reconnectBackoff paces redials after a dropped socket.
const reconnectBackoff = 2 * time.Second

// RunSocketMode maintains a socket-mode connection and delivers decoded
// push events until ctx is canceled. Dropped connections are redialed;
// the pull path covers anything missed in the gap.
func (c *Client) RunSocketMode(ctx context.Context, deliver func(remote.Event)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.socketSession(ctx, deliver); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.Warn("socket_session_ended", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectBackoff):
		}
	}
}

// socketSession opens one websocket connection and pumps envelopes until
// the service asks for a disconnect or the connection fails.
func (c *Client) socketSession(ctx context.Context, deliver func(remote.Event)) error {
	wsURL, err := c.openConnection(ctx)
	if err != nil {
		return err
	}
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("socket dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(1 << 20)

	logger.Log.Info("socket_connected")
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("socket read: %w", err)
		}
		envType := gjson.GetBytes(data, "type").String()
		switch envType {
		case "hello":
			logger.Log.Debug("socket_hello")
		case "disconnect":
			// The service rotates connections; redial on a fresh URL.
			logger.Log.Info("socket_disconnect_requested",
				zap.String("reason", gjson.GetBytes(data, "reason").String()))
			return nil
		case "events_api":
			if id := gjson.GetBytes(data, "envelope_id").String(); id != "" {
				ack := fmt.Sprintf(`{"envelope_id":%q}`, id)
				if err := conn.Write(ctx, websocket.MessageText, []byte(ack)); err != nil {
					return fmt.Errorf("socket ack: %w", err)
				}
			}
			if ev, ok := decodeEvent(data); ok {
				deliver(ev)
			}
		default:
			logger.Log.Debug("socket_envelope_ignored", zap.String("type", envType))
		}
	}
}

// openConnection requests a fresh websocket URL using the app-level token.
func (c *Client) openConnection(ctx context.Context) (string, error) {
	body, err := c.call(ctx, http.MethodPost, "apps.connections.open", c.appToken, url.Values{})
	if err != nil {
		return "", err
	}
	wsURL := gjson.GetBytes(body, "url").String()
	if wsURL == "" {
		return "", fmt.Errorf("apps.connections.open: missing url")
	}
	return wsURL, nil
}

// decodeEvent maps an events_api envelope onto a push event. Envelopes
// the cache has no use for (typing, channel metadata, message edits)
// report !ok and are dropped after the ack.
func decodeEvent(envelope []byte) (remote.Event, bool) {
	ev := gjson.GetBytes(envelope, "payload.event")
	if !ev.Exists() {
		return remote.Event{}, false
	}
	switch ev.Get("type").String() {
	case "message":
		if ev.Get("subtype").Exists() {
			return remote.Event{}, false
		}
		switch ev.Get("channel_type").String() {
		case "channel", "group", "im", "mpim":
		default:
			return remote.Event{}, false
		}
		return remote.Event{
			Kind:    remote.EventMessageCreated,
			Channel: ev.Get("channel").String(),
			TS:      ev.Get("ts").String(),
			User:    ev.Get("user").String(),
			Payload: []byte(ev.Raw),
		}, true
	case "reaction_added", "reaction_removed":
		item := ev.Get("item")
		if item.Get("type").String() != "message" {
			return remote.Event{}, false
		}
		kind := remote.EventReactionAdded
		if ev.Get("type").String() == "reaction_removed" {
			kind = remote.EventReactionRemoved
		}
		return remote.Event{
			Kind:     kind,
			Channel:  item.Get("channel").String(),
			TS:       item.Get("ts").String(),
			Reaction: ev.Get("reaction").String(),
			User:     ev.Get("user").String(),
		}, true
	}
	return remote.Event{}, false
}

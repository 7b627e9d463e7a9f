// Package slack is the reference Remote Sync Client: a thin binding of the
// pkg/remote interfaces onto the Slack web API. The cache core never
// depends on this package directly.
package slack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/cwaldbieser/slack-tui/pkg/models"
	"github.com/cwaldbieser/slack-tui/pkg/remote"
)

const defaultBaseURL = "https://slack.com/api"

// historyPageLimit matches the page size the service caps history
// responses at.
const historyPageLimit = 100

// Client implements remote.Client against the Slack web API. All calls are
// paced through a shared rate limiter.
type Client struct {
	httpc     *http.Client
	baseURL   string
	userToken string
	appToken  string
	limiter   *rate.Limiter
}

var _ remote.Client = (*Client)(nil)

// APIError is an ok=false envelope from the web API, carrying the
// machine-readable error code so callers can branch on it without string
// matching.
type APIError struct {
	Method string
	Code   string
}

func (e *APIError) Error() string { return e.Method + ": " + e.Code }

// errCode returns the envelope error code carried by err, or "".
func errCode(err error) string {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// New builds a client from the workspace's user and app tokens.
func New(userToken, appToken string) *Client {
	return &Client{
		httpc:     &http.Client{Timeout: 30 * time.Second},
		baseURL:   defaultBaseURL,
		userToken: userToken,
		appToken:  appToken,
		limiter:   rate.NewLimiter(rate.Limit(2), 4),
	}
}

// NewWithBaseURL points the client at an alternate API root; used by
// tests.
func NewWithBaseURL(base, userToken, appToken string) *Client {
	c := New(userToken, appToken)
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

// call performs one web API method call and returns the response body
// after checking the ok envelope.
func (c *Client) call(ctx context.Context, httpMethod, apiMethod, token string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	u := c.baseURL + "/" + apiMethod
	var req *http.Request
	var err error
	if httpMethod == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, httpMethod, u, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, httpMethod, u+"?"+params.Encode(), nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", apiMethod, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", apiMethod, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d", apiMethod, resp.StatusCode)
	}
	if ok := gjson.GetBytes(body, "ok"); !ok.Exists() {
		return nil, fmt.Errorf("%s: malformed response, missing ok field", apiMethod)
	} else if !ok.Bool() {
		return nil, &APIError{Method: apiMethod, Code: gjson.GetBytes(body, "error").String()}
	}
	return body, nil
}

// ListChannels queries every conversation kind visible to the account.
func (c *Client) ListChannels(ctx context.Context) ([]models.Channel, error) {
	params := url.Values{}
	params.Set("types", "public_channel,private_channel,mpim,im")
	body, err := c.call(ctx, http.MethodGet, "conversations.list", c.userToken, params)
	if err != nil {
		return nil, err
	}
	arr := gjson.GetBytes(body, "channels")
	if !arr.Exists() {
		return nil, fmt.Errorf("conversations.list: missing channels field")
	}
	var out []models.Channel
	for _, raw := range arr.Array() {
		ch, err := models.DecodeChannel([]byte(raw.Raw))
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

// ListUsers queries the workspace user directory.
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	body, err := c.call(ctx, http.MethodGet, "users.list", c.userToken, url.Values{})
	if err != nil {
		return nil, err
	}
	arr := gjson.GetBytes(body, "members")
	if !arr.Exists() {
		return nil, fmt.Errorf("users.list: missing members field")
	}
	var out []models.User
	for _, raw := range arr.Array() {
		u, err := models.DecodeUser([]byte(raw.Raw))
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// FetchHistory drains every page of a channel's history newer than oldest
// and returns the messages normalized and in ascending timestamp order.
func (c *Client) FetchHistory(ctx context.Context, channelID, oldest string) ([]models.Message, error) {
	base := url.Values{}
	base.Set("channel", channelID)
	base.Set("limit", fmt.Sprintf("%d", historyPageLimit))
	if oldest != "" {
		base.Set("oldest", oldest)
	}
	cursor := ""
	var out []models.Message
	for {
		params := url.Values{}
		for k, v := range base {
			params[k] = v
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		body, err := c.call(ctx, http.MethodGet, "conversations.history", c.userToken, params)
		if err != nil {
			return nil, err
		}
		msgs := gjson.GetBytes(body, "messages")
		if !msgs.Exists() {
			return nil, fmt.Errorf("conversations.history: missing messages field")
		}
		for _, raw := range msgs.Array() {
			m, err := models.NormalizeMessage([]byte(raw.Raw))
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		if !gjson.GetBytes(body, "has_more").Bool() {
			break
		}
		next := gjson.GetBytes(body, "response_metadata.next_cursor")
		if !next.Exists() || next.String() == "" {
			return nil, fmt.Errorf("conversations.history: has_more without next_cursor")
		}
		cursor = next.String()
	}
	// Pages arrive newest-first; one sort beats reasoning about per-page
	// reversal.
	sort.Slice(out, func(i, j int) bool { return out[i].TS < out[j].TS })
	return out, nil
}

// FetchAttachment resolves an attachment id to metadata and bytes via the
// file-info endpoint and the private download URL.
func (c *Client) FetchAttachment(ctx context.Context, id string) (models.FileMeta, []byte, error) {
	params := url.Values{}
	params.Set("file", id)
	body, err := c.call(ctx, http.MethodGet, "files.info", c.userToken, params)
	if err != nil {
		if errCode(err) == "file_not_found" {
			return models.FileMeta{}, nil, remote.ErrNotFound
		}
		return models.FileMeta{}, nil, err
	}
	file := gjson.GetBytes(body, "file")
	if !file.Exists() {
		return models.FileMeta{}, nil, fmt.Errorf("files.info: missing file field")
	}
	private := file.Get("url_private").String()
	if private == "" {
		return models.FileMeta{}, nil, fmt.Errorf("files.info: missing url_private")
	}
	data, err := c.download(ctx, private)
	if err != nil {
		return models.FileMeta{}, nil, err
	}
	meta := models.FileMeta{
		ID:       id,
		Created:  file.Get("created").Int(),
		Name:     file.Get("name").String(),
		Title:    file.Get("title").String(),
		Mimetype: file.Get("mimetype").String(),
	}
	if meta.Title == "" {
		meta.Title = meta.Name
	}
	return meta, data, nil
}

func (c *Client) download(ctx context.Context, u string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.userToken)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// PostMessage sends a text message to a channel. A fresh client_msg_id
// lets the service deduplicate retried posts.
func (c *Client) PostMessage(ctx context.Context, channelID, text string) error {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("text", text)
	params.Set("client_msg_id", uuid.NewString())
	_, err := c.call(ctx, http.MethodPost, "chat.postMessage", c.userToken, params)
	return err
}

// AddReaction attaches an emoji reaction to a message. Reacting twice is
// treated as success.
func (c *Client) AddReaction(ctx context.Context, channelID, ts, code string) error {
	err := c.reaction(ctx, "reactions.add", channelID, ts, code)
	if errCode(err) == "already_reacted" {
		return nil
	}
	return err
}

// RemoveReaction detaches an emoji reaction. Removing an absent reaction
// is treated as success.
func (c *Client) RemoveReaction(ctx context.Context, channelID, ts, code string) error {
	err := c.reaction(ctx, "reactions.remove", channelID, ts, code)
	if errCode(err) == "no_reaction" {
		return nil
	}
	return err
}

func (c *Client) reaction(ctx context.Context, apiMethod, channelID, ts, code string) error {
	params := url.Values{}
	params.Set("channel", channelID)
	params.Set("name", code)
	params.Set("timestamp", ts)
	_, err := c.call(ctx, http.MethodPost, apiMethod, c.userToken, params)
	return err
}

package pushover

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"micrecorder/internal/domain"
	"micrecorder/internal/infra"
)

const defaultAPIURL = "https://api.pushover.net/1/messages.json"

// Client presents recorder notifications as Pushover messages. Actions are
// rendered as a supplementary URL on the daemon's HTTP API.
type Client struct {
	token       string
	userKey     string
	apiURL      string
	actionURL   string
	actionToken string
	httpClient  *http.Client
	retry       infra.RetryConfig

	mu       sync.Mutex
	channels map[string]domain.Channel
}

// NewClient builds a presenter. actionURL is the externally reachable base URL
// of the recorder API; leave it empty to send messages without actions.
// actionToken is appended to the Stop link and should only authorize /stop.
func NewClient(token, userKey, actionURL, actionToken string) *Client {
	return NewClientWithURL(token, userKey, actionURL, actionToken, defaultAPIURL)
}

func NewClientWithURL(token, userKey, actionURL, actionToken, apiURL string) *Client {
	return &Client{
		token:       token,
		userKey:     userKey,
		apiURL:      apiURL,
		actionURL:   strings.TrimRight(actionURL, "/"),
		actionToken: actionToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retry:       infra.DefaultRetryConfig(),
		channels:    make(map[string]domain.Channel),
	}
}

func (c *Client) EnsureChannel(_ context.Context, ch domain.Channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.channels[ch.ID]; !ok {
		c.channels[ch.ID] = ch
	}
	return nil
}

func (c *Client) Show(ctx context.Context, n domain.Notification) error {
	if c.token == "" || c.userKey == "" {
		return nil
	}

	c.mu.Lock()
	ch, ok := c.channels[n.ChannelID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("notification channel %q not registered", n.ChannelID)
	}

	data := url.Values{}
	data.Set("token", c.token)
	data.Set("user", c.userKey)
	data.Set("title", n.Title)
	data.Set("message", n.Text)
	data.Set("priority", strconv.Itoa(priority(ch.Importance)))
	if actionURL, title, ok := c.action(n); ok {
		data.Set("url", actionURL)
		data.Set("url_title", title)
	}

	return infra.WithRetry(ctx, c.retry, func() error {
		return c.post(ctx, data)
	})
}

// Dismiss is a no-op: delivered Pushover messages cannot be recalled.
func (c *Client) Dismiss(_ context.Context, _ int) error {
	return nil
}

func (c *Client) post(ctx context.Context, data url.Values) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.apiURL,
		strings.NewReader(data.Encode()),
	)
	if err != nil {
		return infra.Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer resp.Body.Close()

	return infra.CheckHTTPStatus("pushover", resp)
}

func (c *Client) action(n domain.Notification) (string, string, bool) {
	if c.actionURL == "" {
		return "", "", false
	}
	for _, a := range n.Actions {
		if a.Command.Kind != domain.CommandStop {
			continue
		}
		u := c.actionURL + "/stop"
		if c.actionToken != "" {
			u += "?token=" + url.QueryEscape(c.actionToken)
		}
		return u, a.Label, true
	}
	return "", "", false
}

func priority(i domain.Importance) int {
	switch i {
	case domain.ImportanceMin:
		return -2
	case domain.ImportanceLow:
		return -1
	case domain.ImportanceHigh:
		return 1
	default:
		return 0
	}
}

package chatwork

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Chatwork API v2 endpoint
const DefaultBaseURL = "https://api.chatwork.com/v2"

// Chatwork allows 300 requests per 5 minutes per token
const (
	defaultRate  = rate.Limit(1)
	defaultBurst = 5
)

// Account is the sender of a message
type Account struct {
	AccountID int64  `json:"account_id"`
	Name      string `json:"name"`
}

// Message is a message returned by GET /rooms/{id}/messages
type Message struct {
	MessageID  ID      `json:"message_id"`
	Account    Account `json:"account"`
	Body       string  `json:"body"`
	SendTime   int64   `json:"send_time"`
	UpdateTime int64   `json:"update_time"`
}

// Member is a room member returned by GET /rooms/{id}/members
type Member struct {
	AccountID int64  `json:"account_id"`
	Role      string `json:"role"` // admin, member, readonly
	Name      string `json:"name"`
}

// Room is a joined room returned by GET /my/rooms
type Room struct {
	RoomID int64  `json:"room_id"`
	Name   string `json:"name"`
	Type   string `json:"type"` // my, direct, group
	Role   string `json:"role"`
}

// MemberRoles is the full role assignment sent to PUT /rooms/{id}/members
type MemberRoles struct {
	Admin    []int64 `json:"admin"`
	Member   []int64 `json:"member"`
	Readonly []int64 `json:"readonly"`
}

// ID accepts both the string and the numeric form Chatwork uses for message ids
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", s, err)
	}
	*id = ID(n)
	return nil
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Errors     []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return http.StatusText(e.StatusCode)
	}
	return strings.Join(e.Errors, "; ")
}

// Client is the Chatwork REST client
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger

	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL overrides the API endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithRateLimit sets the request rate; r <= 0 disables limiting
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		if r <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithRetry sets the retry policy of the underlying HTTP client
func WithRetry(max int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.retryMax = max
		c.retryWaitMin = waitMin
		c.retryWaitMax = waitMax
	}
}

// NewClient creates a new Chatwork client
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:      DefaultBaseURL,
		token:        token,
		limiter:      rate.NewLimiter(defaultRate, defaultBurst),
		log:          slog.Default().With("component", "chatwork"),
		retryMax:     3,
		retryWaitMin: 1 * time.Second,
		retryWaitMax: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = c.robustHTTPClient()
	return c
}

// robustHTTPClient retries on connection errors, 5xx (except 501) and 429,
// honoring Retry-After. POST is not retried on 5xx, see retryPolicy.
func (c *Client) robustHTTPClient() *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = c.retryMax
	retryClient.RetryWaitMin = c.retryWaitMin
	retryClient.RetryWaitMax = c.retryWaitMax
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{c.log})
	retryClient.CheckRetry = retryPolicy
	client := retryClient.StandardClient()
	client.Timeout = 20 * time.Second
	return client
}

// retryPolicy is the default policy except that a POST answered with 5xx is not
// retried: Chatwork may have stored the message before failing, and a retry would
// post the notice twice.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp != nil && resp.Request != nil &&
		resp.Request.Method == http.MethodPost && resp.StatusCode >= 500 {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// ListRooms lists joined rooms
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := c.do(ctx, http.MethodGet, "/my/rooms", nil, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// GetMembers gets the member list of a room
func (c *Client) GetMembers(ctx context.Context, roomID int64) ([]Member, error) {
	var members []Member
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "members"), nil, nil, &members); err != nil {
		return nil, err
	}
	return members, nil
}

// GetMessages gets up to 100 messages of a room. With force false only messages
// not yet fetched with this token are returned, so a restarted process does not
// see old messages again; with force true the latest 100 are returned.
// Nothing to return answers 204 and yields a nil slice.
func (c *Client) GetMessages(ctx context.Context, roomID int64, force bool) ([]Message, error) {
	var msgs []Message
	query := url.Values{"force": {"0"}}
	if force {
		query.Set("force", "1")
	}
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "messages"), query, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// PostMessage posts a message and returns its id
func (c *Client) PostMessage(ctx context.Context, roomID int64, body string) (int64, error) {
	var resp struct {
		MessageID ID `json:"message_id"`
	}
	form := url.Values{"body": {body}}
	if err := c.do(ctx, http.MethodPost, roomPath(roomID, "messages"), nil, form, &resp); err != nil {
		return 0, err
	}
	return int64(resp.MessageID), nil
}

// UpdateMembers replaces the role assignment of a room.
// Chatwork requires at least one admin.
func (c *Client) UpdateMembers(ctx context.Context, roomID int64, roles MemberRoles) (*MemberRoles, error) {
	if len(roles.Admin) == 0 {
		return nil, fmt.Errorf("update members of room %d: at least one admin is required", roomID)
	}
	form := url.Values{"members_admin_ids": {joinIDs(roles.Admin)}}
	if len(roles.Member) > 0 {
		form.Set("members_member_ids", joinIDs(roles.Member))
	}
	if len(roles.Readonly) > 0 {
		form.Set("members_readonly_ids", joinIDs(roles.Readonly))
	}

	var result MemberRoles
	if err := c.do(ctx, http.MethodPut, roomPath(roomID, "members"), nil, form, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, query, form url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-ChatWorkToken", c.token)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var parsed struct {
			Errors []string `json:"errors"`
		}
		if json.Unmarshal(data, &parsed) == nil {
			apiErr.Errors = parsed.Errors
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func roomPath(roomID int64, sub string) string {
	return "/rooms/" + strconv.FormatInt(roomID, 10) + "/" + sub
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// leveledSlog adapts slog to retryablehttp. Request errors are logged as
// warnings because they are retried.
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...interface{}) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...interface{}) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...interface{}) {
	l.inner.Debug(msg, keysAndValues...)
}

package heyloyalty

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Client represents a Heyloyalty API client
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	userAgent  string
	now        func() time.Time
	logger     zerolog.Logger

	listsMu     sync.Mutex
	lists       []List
	listsLoaded bool

	byIDMu    sync.Mutex
	listsByID map[int]*List
	listGroup singleflight.Group
}

// NewClient creates a new Heyloyalty client
func NewClient(apiKey, apiSecret string, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidConfig)
	}
	if apiSecret == "" {
		return nil, fmt.Errorf("%w: API secret is required", ErrInvalidConfig)
	}

	options := clientOptions{
		baseURL: DefaultBaseURL,
		timeout: defaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&options)
	}

	baseURL := strings.TrimRight(options.baseURL, "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("%w: invalid base URL %q", ErrInvalidConfig, options.baseURL)
	}

	httpClient := options.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: options.timeout}
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: httpClient,
		userAgent:  options.userAgent,
		now:        options.now,
		logger:     logger,
		listsByID:  make(map[int]*List),
	}, nil
}

// signature derives the basic auth password for a request timestamp
func signature(secret, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	return base64.StdEncoding.EncodeToString([]byte(hex.EncodeToString(mac.Sum(nil))))
}

// doRequest performs a signed request and decodes the response body
func (c *Client) doRequest(ctx context.Context, method, endpoint string, params url.Values, form Fields) (result, error) {
	requestURL := c.baseURL + endpoint
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return result{}, fmt.Errorf("failed to create request: %w", err)
	}

	timestamp := c.now().UTC().Format(http.TimeFormat)
	req.SetBasicAuth(c.apiKey, signature(c.apiSecret, timestamp))
	req.Header.Set("X-Request-Timestamp", timestamp)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Msg("Making Heyloyalty API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return result{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{}, fmt.Errorf("failed to read response body: %w", err)
	}

	res := decode(raw)
	if res.err != nil && IsRemoteError(res.err) {
		return res, res.err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return result{}, &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return res, res.err
}

// TestConnection verifies the credentials by fetching the lists
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.ListAll(ctx, true)
	return err
}

// Invalidate drops all cached list data
func (c *Client) Invalidate() {
	c.listsMu.Lock()
	c.lists = nil
	c.listsLoaded = false
	c.listsMu.Unlock()

	c.byIDMu.Lock()
	clear(c.listsByID)
	c.byIDMu.Unlock()
}

// ListAll returns all lists. The result is cached until forceRefresh is set.
func (c *Client) ListAll(ctx context.Context, forceRefresh bool) ([]List, error) {
	c.listsMu.Lock()
	defer c.listsMu.Unlock()

	if c.listsLoaded && !forceRefresh {
		return slices.Clone(c.lists), nil
	}

	res, err := c.doRequest(ctx, http.MethodGet, "/lists", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get lists: %w", err)
	}

	lists, err := decodeLists(res)
	if err != nil {
		return nil, err
	}

	c.lists = lists
	c.listsLoaded = true

	c.logger.Debug().Int("count", len(lists)).Msg("Retrieved lists from Heyloyalty")
	return slices.Clone(lists), nil
}

// decodeLists accepts both a bare array and an object wrapping "lists"
func decodeLists(res result) ([]List, error) {
	if res.empty() {
		return []List{}, nil
	}

	if res.payload[0] == '{' {
		var wrapped struct {
			Lists []List `json:"lists"`
		}
		if err := res.into(&wrapped); err != nil {
			return nil, err
		}
		if wrapped.Lists == nil {
			return []List{}, nil
		}
		return wrapped.Lists, nil
	}

	lists := []List{}
	if err := res.into(&lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// ListByID returns a single list, or nil if Heyloyalty does not know it.
// Each ID is fetched at most once until Invalidate is called.
func (c *Client) ListByID(ctx context.Context, id int) (*List, error) {
	if list, ok := c.cachedList(id); ok {
		return list, nil
	}

	v, err, _ := c.listGroup.Do(strconv.Itoa(id), func() (any, error) {
		if list, ok := c.cachedList(id); ok {
			return list, nil
		}

		list, err := c.fetchList(ctx, id)
		if err != nil {
			return nil, err
		}

		c.byIDMu.Lock()
		c.listsByID[id] = list
		c.byIDMu.Unlock()
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*List), nil
}

func (c *Client) cachedList(id int) (*List, bool) {
	c.byIDMu.Lock()
	defer c.byIDMu.Unlock()

	list, ok := c.listsByID[id]
	return list, ok
}

// fetchList maps a 404 or an empty body to a nil list
func (c *Client) fetchList(ctx context.Context, id int) (*List, error) {
	res, err := c.doRequest(ctx, http.MethodGet, "/lists/"+strconv.Itoa(id), nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get list %d: %w", id, err)
	}

	if res.empty() {
		return nil, nil
	}

	list := &List{}
	if err := res.into(list); err != nil {
		return nil, err
	}
	return list, nil
}

// ListNames returns list names indexed by list ID
func (c *Client) ListNames(ctx context.Context) (map[int]string, error) {
	lists, err := c.ListAll(ctx, false)
	if err != nil {
		return nil, err
	}

	names := make(map[int]string, len(lists))
	for _, list := range lists {
		names[list.ID] = list.Name
	}
	return names, nil
}

// FindMember looks up a member on a list by email. A nil member with a nil
// error means no member matched.
func (c *Client) FindMember(ctx context.Context, listID int, email string) (*Member, error) {
	params := url.Values{}
	params.Set("filter[email][eq][]", email)

	res, err := c.doRequest(ctx, http.MethodGet, membersEndpoint(listID), params, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	var response struct {
		Members []Member `json:"members"`
	}
	if err := res.into(&response); err != nil {
		return nil, err
	}

	if len(response.Members) == 0 {
		return nil, nil
	}
	return &response.Members[0], nil
}

// AddMember creates a member on a list. The response must carry the new
// member's ID.
func (c *Client) AddMember(ctx context.Context, listID int, fields Fields) (*Member, error) {
	if fields == nil {
		fields = Fields{}
	}

	res, err := c.doRequest(ctx, http.MethodPost, membersEndpoint(listID), nil, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}

	// Anything but an object carrying an id leaves the outcome unknown
	var member Member
	if err := res.into(&member); err != nil || member.ID == "" {
		return nil, &RemoteError{
			Message: ErrUnknownCreation.Error(),
			Payload: res.payload,
			Err:     ErrUnknownCreation,
		}
	}

	c.logger.Debug().Int("list_id", listID).Str("member_id", member.ID).Msg("Created member")
	return &member, nil
}

// UpdateMember patches the fields of an existing member. An empty response
// body yields a nil member.
func (c *Client) UpdateMember(ctx context.Context, listID int, memberID string, fields Fields) (*Member, error) {
	endpoint := membersEndpoint(listID) + "/" + url.PathEscape(memberID)
	if fields == nil {
		fields = Fields{}
	}

	res, err := c.doRequest(ctx, http.MethodPatch, endpoint, nil, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update member %s: %w", memberID, err)
	}

	if res.empty() {
		return nil, nil
	}

	var member Member
	if err := res.into(&member); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("list_id", listID).Str("member_id", memberID).Msg("Updated member")
	return &member, nil
}

// UpsertMember creates the member if no member with email exists on the
// list, seeding firstname and email; otherwise it patches the member's fields.
func (c *Client) UpsertMember(ctx context.Context, email, displayName string, listID int, fields Fields) (*UpsertResult, error) {
	existing, err := c.FindMember(ctx, listID, email)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		member, err := c.AddMember(ctx, listID, CreateFields(email, displayName, fields))
		if err != nil {
			return nil, err
		}
		return &UpsertResult{Created: true, Member: member}, nil
	}

	member, err := c.UpdateMember(ctx, listID, existing.ID, fields)
	if err != nil {
		return nil, err
	}
	return &UpsertResult{Member: member}, nil
}

func membersEndpoint(listID int) string {
	return "/lists/" + strconv.Itoa(listID) + "/members"
}

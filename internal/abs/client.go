package abs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultUserAgent identifies the skill to the server.
const DefaultUserAgent = "AlexaSkill"

// Client defines the interface for interacting with the Audiobookshelf API.
type Client interface {
	// LastInProgressItem returns the most recent item the user is listening
	// to, or nil when there is none.
	LastInProgressItem(ctx context.Context) (*LibraryItem, error)

	// Item fetches a library item.
	Item(ctx context.Context, id string, opts ItemOptions) (*LibraryItem, error)

	// StartSession opens a play session for an item on behalf of a device.
	// An item without playable audio yields a 404 RemoteError.
	StartSession(ctx context.Context, itemID, deviceID string) (*PlaybackSession, error)

	// SyncSession reports progress on an open session.
	SyncSession(ctx context.Context, sessionID string, p Progress) error

	// CloseSession reports final progress and closes the session. Failures
	// are logged and reported as false.
	CloseSession(ctx context.Context, sessionID string, p Progress) bool

	// Libraries lists the server libraries.
	Libraries(ctx context.Context) ([]Library, error)

	// LibraryFilterData returns the authors and other filter values of a library.
	LibraryFilterData(ctx context.Context, libraryID string) (*FilterData, error)

	// Author returns an author with their items.
	Author(ctx context.Context, authorID string) (*AuthorWithItems, error)

	// Search runs a free-text search in a library.
	Search(ctx context.Context, libraryID, query string) (*SearchResults, error)
}

// HTTPClient is the HTTP implementation of the Client interface.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(hc *HTTPClient) {
		if ua != "" {
			hc.userAgent = ua
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests unbounded.
func WithTimeout(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = &http.Client{Timeout: d}
	}
}

// WithLogger sets the logger used for best-effort operations.
func WithLogger(l *slog.Logger) ClientOption {
	return func(hc *HTTPClient) {
		if l != nil {
			hc.logger = l
		}
	}
}

// NewClient creates a new Audiobookshelf HTTP client for the server at baseURL.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable ABS_API_KEY.
func NewClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}

	c := &HTTPClient{
		baseURL:    baseURL,
		userAgent:  DefaultUserAgent,
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("ABS_API_KEY")
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// BaseURL returns the server URL without a trailing slash.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// LastInProgressItem returns the first item of the user's in-progress list.
func (c *HTTPClient) LastInProgressItem(ctx context.Context) (*LibraryItem, error) {
	var resp itemsInProgressResponse
	if err := c.doRequest(ctx, "items in progress", http.MethodGet, "/api/me/items-in-progress", nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.LibraryItems) == 0 {
		return nil, nil
	}
	item := resp.LibraryItems[0]
	return &item, nil
}

// Item fetches a library item with the given query flags.
func (c *HTTPClient) Item(ctx context.Context, id string, opts ItemOptions) (*LibraryItem, error) {
	if id == "" {
		return nil, ErrItemIDRequired
	}

	q := url.Values{}
	if len(opts.Include) > 0 {
		q.Set("include", strings.Join(opts.Include, ","))
	}
	if opts.Expanded {
		q.Set("expanded", "1")
	}
	if opts.Episode != "" {
		q.Set("episode", opts.Episode)
	}

	path := "/api/items/" + url.PathEscape(id)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var item LibraryItem
	if err := c.doRequest(ctx, "fetch item", http.MethodGet, path, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// StartSession asks the server to open a play session for itemID.
func (c *HTTPClient) StartSession(ctx context.Context, itemID, deviceID string) (*PlaybackSession, error) {
	if itemID == "" {
		return nil, ErrItemIDRequired
	}

	reqBody := playRequest{
		DeviceInfo: deviceInfo{
			DeviceID:      deviceID,
			ClientName:    "Alexa Device",
			ClientVersion: "1.0",
			Manufacturer:  "Amazon",
			Model:         "Echo",
			SDKVersion:    1,
		},
		ForceDirectPlay:    false,
		ForceTranscode:     false,
		SupportedMimeTypes: supportedMimeTypes,
		MediaPlayer:        "unknown",
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("abs: marshal request: %w", err)
	}

	var session PlaybackSession
	path := "/api/items/" + url.PathEscape(itemID) + "/play"
	if err := c.doRequest(ctx, "start session", http.MethodPost, path, bodyBytes, &session); err != nil {
		return nil, err
	}

	// The server answers 200 with an empty track list for items without audio.
	if len(session.AudioTracks) == 0 {
		return nil, &RemoteError{Op: "start session", StatusCode: http.StatusNotFound, Body: "no playable audio tracks"}
	}

	return &session, nil
}

// SyncSession reports progress on an open session.
func (c *HTTPClient) SyncSession(ctx context.Context, sessionID string, p Progress) error {
	if sessionID == "" {
		return ErrSessionIDRequired
	}

	bodyBytes, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("abs: marshal request: %w", err)
	}

	path := "/api/session/" + url.PathEscape(sessionID) + "/sync"
	return c.doRequest(ctx, "sync session", http.MethodPost, path, bodyBytes, nil)
}

// CloseSession reports final progress and closes the session.
func (c *HTTPClient) CloseSession(ctx context.Context, sessionID string, p Progress) bool {
	if sessionID == "" {
		c.logger.Warn("close session skipped: empty session id")
		return false
	}

	bodyBytes, err := json.Marshal(p)
	if err != nil {
		c.logger.Error("close session: marshal request", slog.String("error", err.Error()))
		return false
	}

	path := "/api/session/" + url.PathEscape(sessionID) + "/close"
	if err := c.doRequest(ctx, "close session", http.MethodPost, path, bodyBytes, nil); err != nil {
		c.logger.Warn("close session failed",
			slog.String("session_id", sessionID),
			slog.Int("status", StatusCode(err)),
			slog.String("class", ErrorClass(err)),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

// Libraries lists the server libraries.
func (c *HTTPClient) Libraries(ctx context.Context) ([]Library, error) {
	var resp librariesResponse
	if err := c.doRequest(ctx, "list libraries", http.MethodGet, "/api/libraries", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Libraries, nil
}

// LibraryFilterData returns the filter values of a library.
func (c *HTTPClient) LibraryFilterData(ctx context.Context, libraryID string) (*FilterData, error) {
	var fd FilterData
	path := "/api/libraries/" + url.PathEscape(libraryID) + "/filterdata"
	if err := c.doRequest(ctx, "library filter data", http.MethodGet, path, nil, &fd); err != nil {
		return nil, err
	}
	return &fd, nil
}

// Author returns an author together with their library items.
func (c *HTTPClient) Author(ctx context.Context, authorID string) (*AuthorWithItems, error) {
	var a AuthorWithItems
	path := "/api/authors/" + url.PathEscape(authorID) + "?include=items"
	if err := c.doRequest(ctx, "fetch author", http.MethodGet, path, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Search runs a free-text search in a library.
func (c *HTTPClient) Search(ctx context.Context, libraryID, query string) (*SearchResults, error) {
	var res SearchResults
	path := "/api/libraries/" + url.PathEscape(libraryID) + "/search?q=" + url.QueryEscape(query)
	if err := c.doRequest(ctx, "search library", http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// doRequest performs a single HTTP request against the server.
func (c *HTTPClient) doRequest(ctx context.Context, op, method, path string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("abs: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("abs: %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("abs: %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("abs: %s: unmarshal response: %w", op, err)
		}
	}

	return nil
}

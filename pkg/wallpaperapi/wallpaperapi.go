package wallpaperapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"wallview/pkg/models"
)

const (
	DefaultBaseURL  = "http://wallpaper.apc.360.cn/index.php"
	DefaultPageSize = 30
	DefaultTimeout  = 10 * time.Second
)

type Options struct {
	BaseURL   string
	PageSize  int
	UserAgent string
	Timeout   time.Duration
	// HTTP overrides the client built from Timeout.
	HTTP   *http.Client
	Logger *slog.Logger
}

// Client talks to the wallpaper JSON API.
type Client struct {
	baseURL   string
	pageSize  int
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

func New(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base url scheme %q", u.Scheme)
	}

	c := &Client{
		baseURL:   base,
		pageSize:  opts.PageSize,
		userAgent: opts.UserAgent,
		http:      opts.HTTP,
		logger:    opts.Logger,
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if c.userAgent == "" {
		c.userAgent = models.AppName + "/" + models.Version
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

func (c *Client) PageSize() int {
	return c.pageSize
}

// FetchByCategory returns the page of category starting at offset start.
func (c *Client) FetchByCategory(ctx context.Context, categoryID, start int) (*models.Envelope, error) {
	params := url.Values{}
	params.Set("c", "WallPaper")
	params.Set("a", "getAppsByCategory")
	params.Set("cid", strconv.Itoa(categoryID))
	params.Set("start", strconv.Itoa(start))
	params.Set("count", strconv.Itoa(c.pageSize))
	params.Set("from", "360chrome")

	var env models.Envelope
	if err := c.get(ctx, params, &env); err != nil {
		return nil, fmt.Errorf("failed to fetch category %d: %w", categoryID, err)
	}
	return &env, nil
}

// FetchBySearch returns the page of search results for keyword starting at offset start.
func (c *Client) FetchBySearch(ctx context.Context, start int, keyword string) (*models.Envelope, error) {
	params := url.Values{}
	params.Set("c", "WallPaper")
	params.Set("a", "search")
	params.Set("start", strconv.Itoa(start))
	params.Set("count", strconv.Itoa(c.pageSize))
	params.Set("kw", keyword)

	var env models.Envelope
	if err := c.get(ctx, params, &env); err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", keyword, err)
	}
	return &env, nil
}

func (c *Client) FetchCategories(ctx context.Context) ([]models.Category, error) {
	params := url.Values{}
	params.Set("c", "WallPaper")
	params.Set("a", "getAllCategoriesV2")
	params.Set("from", "360chrome")

	var env models.CategoryEnvelope
	if err := c.get(ctx, params, &env); err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}
	if err := env.Err(); err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	began := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "request_id", requestID, "action", params.Get("a"), "error", err)
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("request done",
		"request_id", requestID,
		"action", params.Get("a"),
		"status", resp.StatusCode,
		"elapsed", time.Since(began).String(),
	)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

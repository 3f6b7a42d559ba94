package lemmy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

var (
	// ErrNotLoggedIn is returned for calls that need a session token.
	ErrNotLoggedIn = errors.New("lemmy: not logged in")
	// ErrAPI wraps error bodies returned by the server.
	ErrAPI = errors.New("lemmy: api error")
)

// Session targets one instance, optionally authenticated. It is a value:
// switching accounts builds a new Session instead of mutating a shared client.
type Session struct {
	Instance string
	Auth     string
}

// Anonymous reports whether the session has no token.
func (s Session) Anonymous() bool {
	return s.Auth == ""
}

// BaseURL is the v3 API root of the session's instance.
func (s Session) BaseURL() string {
	inst := strings.TrimRight(strings.TrimSpace(s.Instance), "/")
	if !strings.Contains(inst, "://") {
		inst = "https://" + inst
	}
	return inst + "/api/v3"
}

// Options configures the HTTP client.
type Options struct {
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	UserAgent    string
	QPS          float64
	Burst        int
}

// Client talks to any Lemmy instance; the target comes from the Session
// passed to each call.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func New(opts Options, log *slog.Logger) *Client {
	if opts.QPS <= 0 {
		opts.QPS = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "jerboa-tui"
	}
	if log == nil {
		log = slog.Default()
	}

	c := &Client{
		limiter: rate.NewLimiter(rate.Limit(opts.QPS), opts.Burst),
		log:     log,
	}
	c.http = resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(opts.RetryWait).
		SetRetryMaxWaitTime(opts.RetryMaxWait).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			if r == nil {
				return true
			}
			return r.StatusCode() >= 500
		})
	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		c.log.Debug("http request",
			"method", req.Method,
			"url", req.URL)
		return nil
	})
	return c
}

// GetPosts fetches one page of the post listing.
func (c *Client) GetPosts(ctx context.Context, s Session, form GetPosts) ([]PostView, error) {
	params := map[string]string{}
	if s.Auth != "" {
		params["auth"] = s.Auth
	}
	if form.Sort != "" {
		params["sort"] = string(form.Sort)
	}
	if form.Type != "" {
		params["type_"] = string(form.Type)
	}
	if form.Page > 0 {
		params["page"] = strconv.Itoa(form.Page)
	}
	if form.Limit > 0 {
		params["limit"] = strconv.Itoa(form.Limit)
	}
	if form.CommunityID > 0 {
		params["community_id"] = strconv.Itoa(form.CommunityID)
	}

	var out getPostsResponse
	if err := c.do(ctx, s, "GET", "/post/list", params, nil, &out); err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	return out.Posts, nil
}

// GetSite fetches instance info; with a token it includes the acting user.
func (c *Client) GetSite(ctx context.Context, s Session) (*GetSiteResponse, error) {
	params := map[string]string{}
	if s.Auth != "" {
		params["auth"] = s.Auth
	}
	var out GetSiteResponse
	if err := c.do(ctx, s, "GET", "/site", params, nil, &out); err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}
	return &out, nil
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, s Session, form Login) (string, error) {
	var out loginResponse
	if err := c.do(ctx, s, "POST", "/user/login", nil, form, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if out.JWT == nil || *out.JWT == "" {
		return "", fmt.Errorf("login: %w: no token returned", ErrAPI)
	}
	return *out.JWT, nil
}

// LikePost sets the session user's vote on a post (score -1, 0 or 1).
func (c *Client) LikePost(ctx context.Context, s Session, postID, score int) (PostView, error) {
	if s.Anonymous() {
		return PostView{}, ErrNotLoggedIn
	}
	var out postResponse
	form := likePostForm{PostID: postID, Score: score, Auth: s.Auth}
	if err := c.do(ctx, s, "POST", "/post/like", nil, form, &out); err != nil {
		return PostView{}, fmt.Errorf("like post %d: %w", postID, err)
	}
	return out.PostView, nil
}

// SavePost saves or unsaves a post for the session user.
func (c *Client) SavePost(ctx context.Context, s Session, postID int, save bool) (PostView, error) {
	if s.Anonymous() {
		return PostView{}, ErrNotLoggedIn
	}
	var out postResponse
	form := savePostForm{PostID: postID, Save: save, Auth: s.Auth}
	if err := c.do(ctx, s, "PUT", "/post/save", nil, form, &out); err != nil {
		return PostView{}, fmt.Errorf("save post %d: %w", postID, err)
	}
	return out.PostView, nil
}

func (c *Client) do(ctx context.Context, s Session, method, path string, params map[string]string, body, result any) error {
	if strings.TrimSpace(s.Instance) == "" {
		return fmt.Errorf("%w: no instance", ErrAPI)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var apiErr errorResponse
	req := c.http.R().
		SetContext(ctx).
		SetResult(result).
		SetError(&apiErr)
	if params != nil {
		req.SetQueryParams(params)
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, s.BaseURL()+path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = resp.Status()
		}
		return fmt.Errorf("%w: %s", ErrAPI, msg)
	}
	return nil
}

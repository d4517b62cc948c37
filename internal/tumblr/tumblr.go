// Package tumblr browses the photo posts of a Tumblr blog.
package tumblr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const DefaultBaseURL = "https://api.tumblr.com/v2"

var (
	ErrNotConfigured = errors.New("tumblr api key not configured")
	ErrBlogNotFound  = errors.New("tumblr blog not found")
)

// Post is a single photo post, reduced to its first photo.
type Post struct {
	BlogName string   `json:"blog_name"`
	Type     string   `json:"type"`
	PostURL  string   `json:"post_url"`
	Link     string   `json:"link"`
	PostID   int64    `json:"post_id"`
	Caption  string   `json:"caption"`
	Tags     []string `json:"tags"`
}

// Page is one slice of a blog's photo posts.
type Page struct {
	Posts      []Post `json:"posts"`
	TotalPosts int    `json:"total_posts"`
	Offset     int    `json:"offset"`
	Limit      int    `json:"limit"`
}

// MaxPost is the index of the last post on this page, capped at the total.
func (p Page) MaxPost() int {
	return min(p.TotalPosts, p.Offset+p.Limit)
}

type Query struct {
	Blog   string
	Tag    string
	Limit  int
	Offset int
}

type apiPhoto struct {
	Caption      string `json:"caption"`
	OriginalSize struct {
		URL string `json:"url"`
	} `json:"original_size"`
}

type apiPost struct {
	BlogName string     `json:"blog_name"`
	Type     string     `json:"type"`
	PostURL  string     `json:"post_url"`
	ID       int64      `json:"id"`
	Tags     []string   `json:"tags"`
	Photos   []apiPhoto `json:"photos"`
}

type apiMeta struct {
	Meta struct {
		Status int    `json:"status"`
		Msg    string `json:"msg"`
	} `json:"meta"`
}

// Error responses carry an empty array as "response", so they only decode
// the meta block.
type apiResponse struct {
	apiMeta
	Response struct {
		Posts      []apiPost `json:"posts"`
		TotalPosts int       `json:"total_posts"`
	} `json:"response"`
}

type Client struct {
	http   *resty.Client
	apiKey string
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetHeader("Accept", "application/json"),
		apiKey: apiKey,
	}
}

func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// blogIdentifier turns a bare blog name into its hostname.
func blogIdentifier(name string) string {
	name = strings.TrimSpace(name)
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".tumblr.com"
}

// Photos fetches photo posts of a blog, optionally filtered by tag.
func (c *Client) Photos(ctx context.Context, q Query) (*Page, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(q.Blog) == "" {
		return nil, errors.New("blog name is required")
	}
	if q.Limit <= 0 || q.Limit > 20 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	params := map[string]string{
		"api_key": c.apiKey,
		"limit":   strconv.Itoa(q.Limit),
		"offset":  strconv.Itoa(q.Offset),
	}
	if q.Tag != "" {
		params["tag"] = q.Tag
	}

	var result apiResponse
	var failure apiMeta
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("blog", blogIdentifier(q.Blog)).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&failure).
		Get("/blog/{blog}/posts/photo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tumblr posts: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, ErrBlogNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("tumblr api returned %d: %s", resp.StatusCode(), failure.Meta.Msg)
	}

	page := &Page{
		Posts:      []Post{},
		TotalPosts: result.Response.TotalPosts,
		Offset:     q.Offset,
		Limit:      q.Limit,
	}
	for _, p := range result.Response.Posts {
		if len(p.Photos) == 0 {
			continue
		}
		page.Posts = append(page.Posts, Post{
			BlogName: p.BlogName,
			Type:     p.Type,
			PostURL:  p.PostURL,
			Link:     p.Photos[0].OriginalSize.URL,
			PostID:   p.ID,
			Caption:  p.Photos[0].Caption,
			Tags:     p.Tags,
		})
	}
	return page, nil
}

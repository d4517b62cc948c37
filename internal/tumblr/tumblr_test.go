package tumblr

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const photoResponse = `{
  "meta": {"status": 200, "msg": "OK"},
  "response": {
    "total_posts": 42,
    "posts": [
      {
        "blog_name": "staff",
        "type": "photo",
        "post_url": "https://staff.tumblr.com/post/1",
        "id": 1,
        "tags": ["art", "ink"],
        "photos": [{"caption": "first", "original_size": {"url": "https://64.media.tumblr.com/a_1280.jpg"}}]
      },
      {
        "blog_name": "staff",
        "type": "photo",
        "post_url": "https://staff.tumblr.com/post/2",
        "id": 2,
        "tags": [],
        "photos": []
      }
    ]
  }
}`

func TestPhotos(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(photoResponse))
	}))
	defer srv.Close()

	client := NewClient("key", srv.URL)
	page, err := client.Photos(t.Context(), Query{Blog: "staff", Tag: "art", Limit: 10, Offset: 40})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/blog/staff.tumblr.com/posts/photo", got.URL.Path)
	assert.Equal(t, "key", got.URL.Query().Get("api_key"))
	assert.Equal(t, "art", got.URL.Query().Get("tag"))
	assert.Equal(t, "10", got.URL.Query().Get("limit"))
	assert.Equal(t, "40", got.URL.Query().Get("offset"))

	require.Len(t, page.Posts, 1, "posts without photos are skipped")
	assert.Equal(t, Post{
		BlogName: "staff",
		Type:     "photo",
		PostURL:  "https://staff.tumblr.com/post/1",
		Link:     "https://64.media.tumblr.com/a_1280.jpg",
		PostID:   1,
		Caption:  "first",
		Tags:     []string{"art", "ink"},
	}, page.Posts[0])
	assert.Equal(t, 42, page.TotalPosts)
	assert.Equal(t, 42, page.MaxPost())
}

func TestPhotosErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"meta": {"status": 404, "msg": "Not Found"}, "response": []}`))
	}))
	defer srv.Close()

	_, err := NewClient("key", srv.URL).Photos(t.Context(), Query{Blog: "missing"})
	assert.ErrorIs(t, err, ErrBlogNotFound)

	_, err = NewClient("", srv.URL).Photos(t.Context(), Query{Blog: "staff"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewClient("key", srv.URL).Photos(t.Context(), Query{})
	assert.Error(t, err)
}

func TestBlogIdentifier(t *testing.T) {
	assert.Equal(t, "staff.tumblr.com", blogIdentifier(" staff "))
	assert.Equal(t, "art.example.com", blogIdentifier("art.example.com"))
}

package service

import (
	"strings"
	"testing"

	"github.com/Kyushi/pemoi/internal/apperror"
	"github.com/Kyushi/pemoi/internal/model"
	"github.com/Kyushi/pemoi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateItemLinks(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "alice")

	tests := []struct {
		name    string
		link    string
		wantErr string
	}{
		{"allowed extension", "photo.jpg", ""},
		{"extension is case-insensitive", "photo.JPG", ""},
		{"url", "https://example.com/img/wave.gif", ""},
		{"not an image", "photo.bmp", "Link must point to a png, jpg, jpeg or gif image"},
		{"missing", "", "Please upload an image or provide a link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := env.itemService.Create(env.ctx, alice, ItemInput{Link: tt.link}, nil)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.link, item.Link)
				return
			}
			assertKind(t, err, apperror.ErrValidation)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestCreateItemDefaults(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceViewer := env.signup(t, "alice")

	item := env.linkItem(t, aliceViewer, model.UncategorizedID, false)
	assert.Equal(t, model.UncategorizedID, item.CategoryID)
	assert.Equal(t, alice.ID, item.UserID)
	assert.False(t, item.Public)
	assert.False(t, item.AddDate.IsZero())
	assert.Nil(t, item.EditDate)

	_, err := env.itemService.Create(env.ctx, model.Anonymous(), ItemInput{Link: "a.png"}, nil)
	assertKind(t, err, apperror.ErrForbidden)
}

func TestCreateItemUpload(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "alice")

	item := env.uploadItem(t, alice, model.UncategorizedID, true)
	assert.True(t, strings.HasPrefix(item.Link, "/static/users/alice/"))
	assert.True(t, strings.HasSuffix(item.Link, ".jpg"))
	assert.FileExists(t, env.fileOf(t, item))

	t.Run("disallowed upload falls back to the link", func(t *testing.T) {
		item, err := env.itemService.Create(env.ctx, alice, ItemInput{Link: "https://example.com/a.png"},
			&Upload{Filename: "x.bmp", Body: strings.NewReader("x")})
		require.NoError(t, err)
		assert.Equal(t, "https://example.com/a.png", item.Link)

		_, err = env.itemService.Create(env.ctx, alice, ItemInput{}, &Upload{Filename: "x.bmp", Body: strings.NewReader("x")})
		assertKind(t, err, apperror.ErrValidation)
	})

	t.Run("failed insert removes the upload", func(t *testing.T) {
		before, err := env.storage.List("alice")
		require.NoError(t, err)

		_, err = env.itemService.Create(env.ctx, alice,
			ItemInput{NewCategory: &CategoryInput{Name: model.UncategorizedName, Public: true}},
			&Upload{Filename: "y.png", Body: strings.NewReader("y")})
		assertKind(t, err, apperror.ErrValidation)

		after, err := env.storage.List("alice")
		require.NoError(t, err)
		assert.ElementsMatch(t, before, after)
	})
}

func TestCreateItemInlineCategory(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceViewer := env.signup(t, "alice")

	item, err := env.itemService.Create(env.ctx, aliceViewer, ItemInput{
		Link:        "a.png",
		NewCategory: &CategoryInput{Name: "Fresh", Public: true},
	}, nil)
	require.NoError(t, err)
	require.NotEqual(t, model.UncategorizedID, item.CategoryID)

	category, err := env.categories.ByID(env.ctx, item.CategoryID)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", category.Name)
	assert.Equal(t, alice.ID, category.UserID)
	assert.True(t, category.Public)

	t.Run("collision aborts both", func(t *testing.T) {
		_, err := env.itemService.Create(env.ctx, aliceViewer, ItemInput{
			Link:        "b.png",
			NewCategory: &CategoryInput{Name: "Fresh", Public: true},
		}, nil)
		assertKind(t, err, apperror.ErrValidation)

		items, err := env.items.AllByOwner(env.ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("ignored when a category is chosen", func(t *testing.T) {
		item, err := env.itemService.Create(env.ctx, aliceViewer, ItemInput{
			Link:        "c.png",
			CategoryID:  category.ID,
			NewCategory: &CategoryInput{Name: "Unused"},
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, category.ID, item.CategoryID)
	})
}

func TestCreateItemCategoryAccess(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "alice")
	_, bob := env.signup(t, "bobby")

	private := env.category(t, alice, "Alice private", false)
	public := env.category(t, alice, "Alice public", true)

	_, err := env.itemService.Create(env.ctx, bob, ItemInput{Link: "a.png", CategoryID: private.ID}, nil)
	assertKind(t, err, apperror.ErrNotFound)

	_, err = env.itemService.Create(env.ctx, bob, ItemInput{Link: "a.png", CategoryID: 999}, nil)
	assertKind(t, err, apperror.ErrNotFound)

	item, err := env.itemService.Create(env.ctx, bob, ItemInput{Link: "a.png", CategoryID: public.ID}, nil)
	require.NoError(t, err)
	assert.Equal(t, public.ID, item.CategoryID)
}

func TestGetItemVisibility(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "alice")
	_, bob := env.signup(t, "bobby")

	private := env.linkItem(t, alice, model.UncategorizedID, false)
	public := env.linkItem(t, alice, model.UncategorizedID, true)

	_, err := env.itemService.Get(env.ctx, bob, private.ID)
	assertKind(t, err, apperror.ErrNotFound)
	_, err = env.itemService.Get(env.ctx, model.Anonymous(), private.ID)
	assertKind(t, err, apperror.ErrNotFound)

	_, err = env.itemService.Get(env.ctx, alice, private.ID)
	assert.NoError(t, err)
	_, err = env.itemService.Get(env.ctx, model.Anonymous(), public.ID)
	assert.NoError(t, err)

	assert.True(t, CanViewItem(public, model.Anonymous()))
	assert.False(t, CanViewItem(private, bob))
	assert.True(t, CanViewItem(private, alice))
}

func TestEditItem(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "alice")
	_, bob := env.signup(t, "bobby")
	item := env.linkItem(t, alice, model.UncategorizedID, false)
	category := env.category(t, alice, "Target", false)

	edited, err := env.itemService.Edit(env.ctx, alice, item.ID, ItemInput{
		Title:      " Wave ",
		Artist:     "Hokusai",
		Note:       "note",
		Keywords:   "sea",
		CategoryID: category.ID,
		Public:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Wave", edited.Title)
	require.NotNil(t, edited.EditDate)

	stored, err := env.items.ByID(env.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, category.ID, stored.CategoryID)
	assert.True(t, stored.Public)
	require.NotNil(t, stored.EditDate)
	assert.Equal(t, item.Link, stored.Link, "links are not editable")

	_, err = env.itemService.Edit(env.ctx, bob, item.ID, ItemInput{Title: "mine"})
	assertKind(t, err, apperror.ErrForbidden)

	bobPrivate := env.category(t, bob, "Bob private", false)
	_, err = env.itemService.Edit(env.ctx, alice, item.ID, ItemInput{CategoryID: bobPrivate.ID})
	assertKind(t, err, apperror.ErrNotFound)
}

func TestDeleteItem(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "alice")
	_, bob := env.signup(t, "bobby")

	upload := env.uploadItem(t, alice, model.UncategorizedID, true)
	path := env.fileOf(t, upload)

	err := env.itemService.Delete(env.ctx, bob, upload.ID)
	assertKind(t, err, apperror.ErrForbidden)
	assert.Equal(t, "You can only delete your own items!", err.Error())

	require.NoError(t, env.itemService.Delete(env.ctx, alice, upload.ID))
	assert.NoFileExists(t, path)

	_, err = env.items.ByID(env.ctx, upload.ID)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)

	t.Run("missing file is ignored", func(t *testing.T) {
		item := env.uploadItem(t, alice, model.UncategorizedID, true)
		require.NoError(t, env.storage.Delete(strings.TrimPrefix(item.Link, testUploadPrefix+"/")))
		assert.NoError(t, env.itemService.Delete(env.ctx, alice, item.ID))
	})

	t.Run("external link leaves storage alone", func(t *testing.T) {
		item := env.linkItem(t, alice, model.UncategorizedID, true)
		assert.NoError(t, env.itemService.Delete(env.ctx, alice, item.ID))
	})
}

func TestListItems(t *testing.T) {
	env := newTestEnv(t)
	alice, aliceViewer := env.signup(t, "alice")
	_, bob := env.signup(t, "bobby")

	category := env.category(t, aliceViewer, "Alice public", true)
	public := env.linkItem(t, aliceViewer, category.ID, true)
	private := env.linkItem(t, aliceViewer, category.ID, false)

	ids := func(items []*model.Item) []int64 {
		out := []int64{}
		for _, i := range items {
			out = append(out, i.ID)
		}
		return out
	}

	got, err := env.itemService.ListByOwner(env.ctx, bob, alice.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, []int64{public.ID}, ids(got))

	got, err = env.itemService.ListByOwner(env.ctx, aliceViewer, alice.ID, repository.Page{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{public.ID, private.ID}, ids(got))

	got, err = env.itemService.ListByCategory(env.ctx, model.Anonymous(), category.ID, repository.Page{})
	require.NoError(t, err)
	assert.Equal(t, []int64{public.ID}, ids(got))

	got, err = env.itemService.ListIndex(env.ctx, model.Anonymous(), repository.Page{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{public.ID}, ids(got))

	hidden := env.category(t, aliceViewer, "Alice private", false)
	_, err = env.itemService.ListByCategory(env.ctx, bob, hidden.ID, repository.Page{})
	assertKind(t, err, apperror.ErrNotFound)
}

func TestSaveExternal(t *testing.T) {
	env := newTestEnv(t)
	_, alice := env.signup(t, "alice")

	item, err := env.itemService.SaveExternal(env.ctx, alice, ExternalItem{
		Link:     "https://64.media.tumblr.com/abc/tumblr_xyz_1280.jpg",
		Title:    "From tumblr",
		Keywords: "art",
	})
	require.NoError(t, err)
	assert.False(t, item.Public)
	assert.Equal(t, model.UncategorizedID, item.CategoryID)
	assert.Equal(t, model.PrivateExport{}, item.Serialize())
}

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()

	s, err := NewLocalStorage(filepath.Join(t.TempDir(), "users"))
	require.NoError(t, err)
	return s
}

func TestLocalStorageAreas(t *testing.T) {
	s := newLocal(t)

	exists, err := s.AreaExists("alice")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.CreateArea("alice"))
	require.NoError(t, s.CreateArea("alice"), "creating twice is a no-op")

	exists, err = s.AreaExists("alice")
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := s.List("alice")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.RemoveArea("alice"))
	assert.ErrorIs(t, s.RemoveArea("alice"), ErrAreaNotFound)

	_, err = s.List("alice")
	assert.ErrorIs(t, err, ErrAreaNotFound)
}

func TestLocalStorageSaveDelete(t *testing.T) {
	s := newLocal(t)

	key := Key("alice", "wave.jpg")
	require.NoError(t, s.Save(key, strings.NewReader("pixels")))

	path, err := s.Path(key)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	assert.Error(t, s.Save(key, strings.NewReader("again")), "existing files are never overwritten")

	names, err := s.List("alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"wave.jpg"}, names)

	assert.ErrorIs(t, s.RemoveArea("alice"), ErrAreaNotEmpty)

	require.NoError(t, s.Delete(key))
	assert.ErrorIs(t, s.Delete(key), ErrNotFound)
}

func TestLocalStorageRenameArea(t *testing.T) {
	s := newLocal(t)

	require.NoError(t, s.Save(Key("alice", "a.png"), strings.NewReader("a")))
	require.NoError(t, s.RenameArea("alice", "alicia"))

	exists, err := s.AreaExists("alice")
	require.NoError(t, err)
	assert.False(t, exists)

	names, err := s.List("alicia")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png"}, names)

	assert.ErrorIs(t, s.RenameArea("alice", "bob"), ErrAreaNotFound)

	require.NoError(t, s.CreateArea("bob"))
	assert.ErrorIs(t, s.RenameArea("alicia", "bob"), ErrAreaExists)
}

func TestInvalidKeys(t *testing.T) {
	s := newLocal(t)

	for _, key := range []string{"", "alice", "../etc/passwd", "alice/../../x", "alice/", "/x", `alice\x`} {
		err := s.Save(key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}

	assert.ErrorIs(t, s.CreateArea(".."), ErrInvalidKey)
	assert.ErrorIs(t, s.RenameArea("alice", "a/b"), ErrInvalidKey)
}

func TestCopySource(t *testing.T) {
	assert.Equal(t, "bucket/J%C3%BCrgen/a%20b.png", copySource("bucket", "Jürgen/a b.png"))
}

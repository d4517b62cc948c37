package service

import (
	"fmt"
	"path"
	"strings"

	"github.com/Kyushi/pemoi/internal/storage"
)

// uploadLinks maps between item links and files in a user's storage area.
// An upload link has the form "<prefix>/<username>/<file>".
type uploadLinks struct {
	prefix string
}

func newUploadLinks(prefix string) uploadLinks {
	return uploadLinks{prefix: strings.TrimSuffix(prefix, "/")}
}

func (u uploadLinks) areaPrefix(username string) string {
	return u.prefix + "/" + username + "/"
}

func (u uploadLinks) Link(username, file string) string {
	return u.areaPrefix(username) + file
}

// File returns the stored file name when link is an upload in the area of
// username.
func (u uploadLinks) File(link, username string) (string, bool) {
	file, ok := strings.CutPrefix(link, u.areaPrefix(username))
	if !ok || file == "" || strings.Contains(file, "/") {
		return "", false
	}
	return file, true
}

// Rename rewrites an upload link of oldUsername to point into newUsername's area.
func (u uploadLinks) Rename(link, oldUsername, newUsername string) (string, bool) {
	file, ok := u.File(link, oldUsername)
	if !ok {
		return link, false
	}
	return u.Link(newUsername, file), true
}

// tombstoneArea is where a deleted account's files wait for removal. The
// username grammar can never produce this name.
func tombstoneArea(userID int64) string {
	return fmt.Sprintf("~deleted-%d", userID)
}

// storedFileName is the name an upload is stored under: a fresh UUID plus
// the lower-cased original extension.
func storedFileName(id, original string) string {
	return id + strings.ToLower(path.Ext(original))
}

// purgeArea removes every file in area and then the area itself. It stops
// at the first failure.
func purgeArea(s storage.Storage, area string) error {
	files, err := s.List(area)
	if err != nil {
		return err
	}

	for _, file := range files {
		err = s.Delete(storage.Key(area, file))
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", file, err)
		}
	}

	return s.RemoveArea(area)
}

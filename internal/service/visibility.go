package service

import "github.com/Kyushi/pemoi/internal/model"

// CanView reports whether viewer may see a record with the given visibility
// and owner. List queries apply the same rule in SQL.
func CanView(public bool, ownerID int64, viewer model.Viewer) bool {
	return public || viewer.Owns(ownerID)
}

// CanViewItem is the visibility check for a single item.
func CanViewItem(item *model.Item, viewer model.Viewer) bool {
	return CanView(item.Public, item.UserID, viewer)
}

func CanViewCategory(category *model.Category, viewer model.Viewer) bool {
	return CanView(category.Public, category.UserID, viewer)
}

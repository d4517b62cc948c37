package model

import "time"

type Item struct {
	ID         int64      `db:"id" json:"id"`
	Link       string     `db:"link" json:"link"`
	Title      string     `db:"title" json:"title"`
	Artist     string     `db:"artist" json:"artist"`
	Note       string     `db:"note" json:"note"`
	Keywords   string     `db:"keywords" json:"keywords"`
	AddDate    time.Time  `db:"add_date" json:"add_date"`
	EditDate   *time.Time `db:"edit_date" json:"edit_date,omitempty"`
	CategoryID int64      `db:"category_id" json:"category_id"`
	UserID     int64      `db:"user_id" json:"user_id"`
	Public     bool       `db:"public" json:"public"`
}

// ItemExport is the public JSON export of an item.
type ItemExport struct {
	Link    string    `json:"link"`
	Title   string    `json:"title"`
	Artist  string    `json:"artist"`
	Note    string    `json:"note"`
	AddDate time.Time `json:"add_date"`
}

// PrivateExport is what exports show for any private record.
type PrivateExport struct {
	Public bool `json:"public"`
}

// Serialize returns the export form of the item. Private items expose
// nothing but their visibility, whoever asks.
func (i *Item) Serialize() any {
	if !i.Public {
		return PrivateExport{}
	}
	return ItemExport{
		Link:    i.Link,
		Title:   i.Title,
		Artist:  i.Artist,
		Note:    i.Note,
		AddDate: i.AddDate,
	}
}

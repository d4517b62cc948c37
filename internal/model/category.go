package model

import "time"

// UncategorizedID is the sentinel catchall category. It is public, owned by
// the admin and never listed.
const UncategorizedID int64 = 0

const (
	UncategorizedName        = "No Category"
	UncategorizedDescription = "Catchall category for uncategorised items"
)

type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	UserID      int64     `db:"user_id" json:"user_id"`
	Public      bool      `db:"public" json:"public"`
	AddDate     time.Time `db:"add_date" json:"add_date"`
}

func (c *Category) IsUncategorized() bool {
	return c.ID == UncategorizedID
}

// CategoryExport is the public JSON export of a category.
type CategoryExport struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	AddDate     time.Time `json:"add_date"`
}

// Serialize returns the export form of the category. Private categories
// expose nothing but their visibility.
func (c *Category) Serialize() any {
	if !c.Public {
		return PrivateExport{}
	}
	return CategoryExport{
		Name:        c.Name,
		Description: c.Description,
		AddDate:     c.AddDate,
	}
}

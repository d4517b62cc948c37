package model

import (
	"fmt"
	"time"
)

// AdminID is the sentinel admin account. It adopts public categories
// abandoned by deleted users and owns the uncategorized category.
const AdminID int64 = 0

const (
	AdminName     = "Admin"
	AdminUsername = "Admin"
	AdminAbout    = "Admin account. Adopts all abandoned categories."
	AdminPicture  = "/static/users/admin.jpg"

	DeletedUserPicture = "/static/users/deleteduser.svg"
)

type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email,omitempty"`
	Picture      string    `db:"picture" json:"picture"`
	About        string    `db:"about" json:"about"`
	RegisterDate time.Time `db:"register_date" json:"register_date"`
}

// DeletedUsername is the placeholder username of an anonymized account.
func DeletedUsername(id int64) string {
	return fmt.Sprintf("user_%d_deleted", id)
}

// DeletedEmail is the placeholder email of an anonymized account.
func DeletedEmail(id int64) string {
	return fmt.Sprintf("user_%d_@deleted", id)
}

func (u *User) IsAdmin() bool {
	return u.ID == AdminID
}

func (u *User) IsDeleted() bool {
	return u.Email == DeletedEmail(u.ID)
}

// Anonymize clears personal data in place. The row itself is kept so that
// public content adopted by the admin keeps valid references.
func (u *User) Anonymize() {
	u.Name = ""
	u.About = ""
	u.Email = DeletedEmail(u.ID)
	u.Username = DeletedUsername(u.ID)
	u.Picture = DeletedUserPicture
}

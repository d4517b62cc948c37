package model

// Viewer identifies who a read is performed for. The zero value is an
// anonymous visitor.
type Viewer struct {
	UserID   int64
	LoggedIn bool
}

func Anonymous() Viewer {
	return Viewer{}
}

// ViewerFor returns the viewer for a signed-in user, or an anonymous viewer
// when user is nil.
func ViewerFor(user *User) Viewer {
	if user == nil {
		return Anonymous()
	}
	return Viewer{UserID: user.ID, LoggedIn: true}
}

// Owns reports whether the viewer is the owner identified by ownerID.
func (v Viewer) Owns(ownerID int64) bool {
	return v.LoggedIn && v.UserID == ownerID
}

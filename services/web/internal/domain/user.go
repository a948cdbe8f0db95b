package domain

// User is the signed-in viewer. A nil *User means nobody is signed in.
type User struct {
	ID    string
	Token string
}

// UserID returns the id of u, or "" for the anonymous viewer.
func UserID(u *User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

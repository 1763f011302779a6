package domain

// User is keyed by email, which doubles as the session owner id.
type User struct {
	Email          string `json:"email"`
	HashedPassword string `json:"-"`
	Name           string `json:"name"`
}

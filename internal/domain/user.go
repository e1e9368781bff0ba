package domain

// User is a person who reports or works on incidents. Read-only here.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

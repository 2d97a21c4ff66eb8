package models

// Identity is one row of the email to login cache. A nil User is a cached
// negative result.
type Identity struct {
	Email string `json:"email"`
	User  *User  `json:"user"`
}

package models

// User is an identity known to the user directory.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Principal is the authenticated identity making a request.
type Principal struct {
	ID    string
	Email string
}

package models

// User represents the USERS table. HashedPassword never leaves the server.
type User struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Contact        string `db:"contact" json:"contact"`
	Campus         string `db:"campus" json:"campus"`
	Email          string `db:"email" json:"email"`
	HashedPassword string `db:"hashed_password" json:"-"`
}

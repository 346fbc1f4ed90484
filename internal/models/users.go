package models

import "time"

type User struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	Image        string    `json:"image,omitempty" db:"image"`
	PasswordHash string    `json:"-" db:"password"`
	Role         string    `json:"role" db:"role"`
	BlockStatus  bool      `json:"block_status" db:"block_status"`
	LoginStatus  bool      `json:"login_status" db:"login_status"`
	DeleteStatus bool      `json:"delete_status" db:"delete_status"`
	CreatedAt    time.Time `json:"created_at" db:"create_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"update_at"`
}

// Profile is the public view of a user.
type Profile struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Image    string `json:"image"`
}

func (u *User) Profile() Profile {
	return Profile{UserID: u.UserID, Username: u.Username, Email: u.Email, Image: u.Image}
}

package models

import "time"

// OTPVerification is one pending or consumed email code. Only the hash of
// the code is stored.
type OTPVerification struct {
	EmailBucket int       `db:"email_bucket"`
	Email       string    `db:"email"`
	CodeHash    string    `db:"code_hash"`
	Consumed    bool      `db:"consumed"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

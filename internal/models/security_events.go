package models

import "time"

const (
	AuthEventLogin        = "login"
	AuthEventLoginFailed  = "login_failed"
	AuthEventLogout       = "logout"
	AuthEventRefresh      = "refresh"
	AuthEventSignup       = "signup"
	AuthEventOTPRequested = "otp_requested"
	AuthEventOTPVerified  = "otp_verified"
	AuthEventOTPFailed    = "otp_failed"
	AuthEventUserBlocked  = "user_blocked"
)

// AuthEvent is one row of the authentication audit trail.
type AuthEvent struct {
	EventID   string    `ch:"event_id"`
	EventTime time.Time `ch:"event_time"`
	EventType string    `ch:"event_type"`
	Subject   string    `ch:"subject"`
	Role      string    `ch:"role"`
	IPAddress string    `ch:"ip_address"`
	UserAgent string    `ch:"user_agent"`
	Success   bool      `ch:"success"`
	Details   string    `ch:"details"`
}

const (
	EventUserRegistered = "user.registered"
	EventUserUpdated    = "user.updated"
	EventUserBlocked    = "user.blocked"
	EventBlogCreated    = "blog.created"
	EventBlogUpdated    = "blog.updated"
	EventBlogDeleted    = "blog.deleted"
	EventBlogReacted    = "blog.reacted"
	EventBlogCommented  = "blog.commented"
)

// DomainEvent is published to the event stream.
type DomainEvent struct {
	EventID    string            `json:"event_id"`
	Type       string            `json:"type"`
	Key        string            `json:"key"`
	ActorID    string            `json:"actor_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

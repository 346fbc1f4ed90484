package models

import "time"

type Blog struct {
	BlogID       string    `json:"blog_id" db:"blog_id"`
	UserID       string    `json:"user_id" db:"user_id"`
	Photo        string    `json:"photo" db:"photo"`
	Description  string    `json:"description" db:"description"`
	Likes        []string  `json:"likes" db:"likes"`
	Dislikes     []string  `json:"dislikes" db:"dislikes"`
	Comments     []Comment `json:"comments" db:"comments"`
	DeleteStatus bool      `json:"-" db:"delete_status"`
	CreatedAt    time.Time `json:"created_at" db:"create_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"update_at"`
}

type Comment struct {
	CommentID string    `json:"comment_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	UserPhoto string    `json:"user_photo"`
	Comment   string    `json:"comment"`
	Timestamp time.Time `json:"timestamp"`
}

// BlogWithAuthor is a feed entry.
type BlogWithAuthor struct {
	BlogID       string    `json:"blog_id"`
	Photo        string    `json:"photo"`
	Description  string    `json:"description"`
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	UserImage    string    `json:"user_image"`
	LikeCount    int       `json:"like_count"`
	DislikeCount int       `json:"dislike_count"`
	Likes        []string  `json:"likes"`
	Dislikes     []string  `json:"dislikes"`
	Comments     []Comment `json:"comments"`
	CreatedAt    time.Time `json:"created_at"`
}

// BlogSummary is the compact listing and editing view.
type BlogSummary struct {
	BlogID      string `json:"blog_id"`
	Photo       string `json:"photo"`
	Description string `json:"description"`
}

// Reaction is a like or dislike.
type Reaction string

const (
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

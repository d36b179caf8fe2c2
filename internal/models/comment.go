package models

import "time"

// Comment is a reader comment on a blog post, hidden until approved.
type Comment struct {
	ID          string    `db:"id" json:"id"`
	PostSlug    string    `db:"post_slug" json:"postSlug"`
	AuthorName  string    `db:"author_name" json:"authorName"`
	AuthorEmail string    `db:"author_email" json:"-"`
	Content     string    `db:"content" json:"content"`
	Approved    bool      `db:"approved" json:"approved"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// CommentFilter scopes comment listings.
type CommentFilter struct {
	PostSlug string
	Approved *bool
	Page     int
	PageSize int
}

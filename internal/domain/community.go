package domain

import "time"

// Author identifies who wrote a community post
type Author struct {
	ID        string
	Username  string
	AvatarURL string
}

type Post struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"authorId"`
	Username   string    `json:"username"`
	UserAvatar string    `json:"userAvatar"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Likes      int       `json:"likes"`
	Comments   int       `json:"comments"`
	IsLiked    bool      `json:"isLiked"`
	HasImage   bool      `json:"hasImage"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Tags       []string  `json:"tags"`
}

// Topic is a trending hashtag with its post count
type Topic struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

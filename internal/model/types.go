package model

import "time"

// Message is a short text post, e.g. a tweet. It is never modified once built.
type Message struct {
	ID        int64     `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Influencer is a ranked user together with the number of distinct users
// that mention them.
type Influencer struct {
	Username  string `json:"username"`
	Followers int    `json:"followers"`
}

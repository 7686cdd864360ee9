package models

import "time"

// Feed is a registered personal feed and the sender it belongs to.
type Feed struct {
	FeedID     string    `db:"feed_id" json:"feedId"`
	Sender     string    `db:"sender" json:"sender"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	LastSeenAt time.Time `db:"last_seen_at" json:"lastSeenAt"`
}

package entity

import "time"

// Video is the minimal video record the account domain needs for the
// watch-history read model. The full video pipeline lives elsewhere.
type Video struct {
	ID              string
	OwnerID         string
	Title           string
	ThumbnailURL    string
	DurationSeconds int
	CreatedAt       time.Time
}

// VideoOwner is the owner projection joined into watch-history rows.
type VideoOwner struct {
	FullName  string
	Username  string
	AvatarURL string
}

// WatchedVideo is one watch-history row with its owner join, in stored order.
type WatchedVideo struct {
	Position int
	Video    Video
	Owner    VideoOwner
}

package models

import "time"

// TimelineEntry is one row of a user's timeline index: either a personal
// post they own or a post they shared.
type TimelineEntry struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    string    `json:"user" gorm:"size:24;uniqueIndex:idx_timeline_user_post;index:idx_timeline_user_date"`
	PostID    string    `json:"post" gorm:"size:24;uniqueIndex:idx_timeline_user_post;index"`
	ShareDate time.Time `json:"shareDate" gorm:"index:idx_timeline_user_date"`
	Privacy   Privacy   `json:"privacy" gorm:"size:20"`
	Community Community `json:"community" gorm:"size:20"`
	Shared    bool      `json:"shared" gorm:"index"`
}

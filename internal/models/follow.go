package models

import "time"

// Follow is a directed social-graph edge: the follower sees the followee's
// posts in their feed. The (follower, followee) pair is unique.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"column:follower;not null;uniqueIndex:idx_follow_pair" json:"follower"`
	FolloweeID uint      `gorm:"column:followee;not null;uniqueIndex:idx_follow_pair" json:"followee"`
	IsAccepted bool      `gorm:"column:is_accepted;default:true" json:"is_accepted"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}

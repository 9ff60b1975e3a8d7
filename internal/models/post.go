package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a single published message. ThreadRef optionally carries the
// delimited ancestor-id chain ("12/7/3") used to rebuild reply history;
// it is opaque at this layer and parsed only by the feed assembler.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CreatedAt time.Time      `gorm:"column:created;index" json:"created"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	Summary   string         `json:"summary,omitempty"`
	ThreadRef string         `gorm:"column:thread" json:"thread_ref,omitempty"`
	Tags      []Tag          `gorm:"many2many:post_tags" json:"tags,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

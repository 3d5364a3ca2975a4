package models

import (
	"time"

	"gorm.io/gorm"
)

type Article struct {
	gorm.Model
	Title       string     `gorm:"size:255;not null" json:"title"`
	Slug        string     `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Body        string     `gorm:"type:text" json:"body"`
	Published   bool       `gorm:"default:false" json:"published"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	AuthorID    *uint      `gorm:"index" json:"author_id,omitempty"`

	Author *Teacher `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

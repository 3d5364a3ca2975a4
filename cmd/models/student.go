package models

import (
	"time"

	"gorm.io/gorm"
)

type Student struct {
	gorm.Model
	FirstName   string     `gorm:"size:100;not null" json:"first_name"`
	LastName    string     `gorm:"size:100;not null" json:"last_name"`
	Email       string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone       string     `gorm:"size:50" json:"phone"`
	BeltRank    string     `gorm:"size:50" json:"belt_rank"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	JoinedAt    time.Time  `json:"joined_at"`
	Active      bool       `gorm:"default:true" json:"active"`

	Enrollments []ClassStudent `gorm:"foreignKey:StudentID" json:"enrollments,omitempty"`
}

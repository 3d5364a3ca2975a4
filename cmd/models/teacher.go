package models

import (
	"gorm.io/gorm"
)

type Teacher struct {
	gorm.Model
	FirstName string `gorm:"size:100;not null" json:"first_name"`
	LastName  string `gorm:"size:100;not null" json:"last_name"`
	Email     string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Phone     string `gorm:"size:50" json:"phone"`
	Specialty string `gorm:"size:100" json:"specialty"`
	Bio       string `gorm:"type:text" json:"bio"`
	Active    bool   `gorm:"default:true" json:"active"`

	ClassAssignments []ClassTeacher `gorm:"foreignKey:TeacherID" json:"class_assignments,omitempty"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

type Payment struct {
	gorm.Model
	StudentID    uint      `gorm:"column:student_id;index;not null" json:"student_id"`
	MembershipID *uint     `gorm:"column:membership_id;index" json:"membership_id,omitempty"`
	Amount       float64   `gorm:"column:amount;not null" json:"amount"`
	Method       string    `gorm:"column:method;size:50;not null" json:"method"`
	Reference    string    `gorm:"column:reference;size:64;uniqueIndex;not null" json:"reference"`
	PaidAt       time.Time `gorm:"column:paid_at;not null" json:"paid_at"`
	Notes        string    `gorm:"column:notes;type:text" json:"notes"`

	Student    *Student    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Membership *Membership `gorm:"foreignKey:MembershipID" json:"membership,omitempty"`
}

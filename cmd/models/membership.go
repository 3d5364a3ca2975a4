package models

import (
	"time"

	"gorm.io/gorm"
)

type MembershipPlan struct {
	gorm.Model
	Name         string  `gorm:"size:255;not null" json:"name"`
	Description  string  `gorm:"type:text" json:"description"`
	Price        float64 `gorm:"not null" json:"price"`
	DurationDays int     `gorm:"not null" json:"duration_days"`
	Active       bool    `gorm:"default:true" json:"active"`
}

const (
	MembershipActive    = "active"
	MembershipExpired   = "expired"
	MembershipCancelled = "cancelled"
)

type Membership struct {
	gorm.Model
	StudentID uint      `gorm:"index;not null" json:"student_id"`
	PlanID    uint      `gorm:"index;not null" json:"plan_id"`
	StartsAt  time.Time `gorm:"not null" json:"starts_at"`
	EndsAt    time.Time `gorm:"not null" json:"ends_at"`
	Status    string    `gorm:"size:20;default:'active'" json:"status"`

	Student *Student        `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Plan    *MembershipPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// Offer is a discount on a membership plan. Exactly one of DiscountAmount and
// DiscountPercent is set; the handlers reject anything else before writing.
type Offer struct {
	gorm.Model
	MembershipPlanID *uint      `gorm:"index" json:"membership_plan_id,omitempty"`
	Title            string     `gorm:"size:255;not null" json:"title"`
	Description      string     `gorm:"type:text" json:"description"`
	DiscountAmount   *float64   `json:"discount_amount"`
	DiscountPercent  *float64   `json:"discount_percent"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`

	Plan *MembershipPlan `gorm:"foreignKey:MembershipPlanID" json:"plan,omitempty"`
}

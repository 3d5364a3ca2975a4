package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCancelled = "cancelled"
)

// ValidAppointmentStatus reports whether s is one of the allowed status
// values. Transitions between them are unrestricted.
func ValidAppointmentStatus(s string) bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCancelled:
		return true
	}
	return false
}

type AppointmentSlot struct {
	gorm.Model
	StartTime  time.Time `gorm:"column:start_time;not null" json:"start_time"`
	EndTime    time.Time `gorm:"column:end_time;not null" json:"end_time"`
	Capacity   int       `gorm:"column:capacity;not null" json:"capacity"`
	IsCaptured bool      `gorm:"column:is_captured;default:false" json:"is_captured"`
	CreatedBy  *uint     `gorm:"column:created_by" json:"created_by,omitempty"`

	Creator *Teacher `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
}

func (AppointmentSlot) TableName() string {
	return "appointment_slots"
}

type Appointment struct {
	gorm.Model
	SlotID      *uint     `gorm:"index" json:"slot_id,omitempty"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Email       string    `gorm:"size:255;not null" json:"email"`
	Phone       string    `gorm:"size:50" json:"phone"`
	ScheduledAt time.Time `gorm:"not null" json:"scheduled_at"`
	Status      string    `gorm:"size:20;default:'pending'" json:"status"`
	Notes       string    `gorm:"type:text" json:"notes"`

	Slot *AppointmentSlot `gorm:"foreignKey:SlotID" json:"slot,omitempty"`
}

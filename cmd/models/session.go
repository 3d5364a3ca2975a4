package models

import (
	"time"

	"gorm.io/gorm"
)

type Session struct {
	gorm.Model
	ClassID uint      `gorm:"index;not null" json:"class_id"`
	Date    time.Time `gorm:"not null" json:"date"`
	Topic   string    `gorm:"size:255" json:"topic"`
	Notes   string    `gorm:"type:text" json:"notes"`

	Class *ClassModel `gorm:"foreignKey:ClassID" json:"class,omitempty"`
}

type Exercise struct {
	gorm.Model
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Difficulty  string `gorm:"size:50" json:"difficulty"`
}

// SessionExercise links an exercise into a session's program.
type SessionExercise struct {
	gorm.Model
	SessionID       uint `gorm:"uniqueIndex:idx_session_exercise;not null" json:"session_id"`
	ExerciseID      uint `gorm:"uniqueIndex:idx_session_exercise;not null" json:"exercise_id"`
	Position        int  `gorm:"default:0" json:"position"`
	DurationMinutes int  `gorm:"default:0" json:"duration_minutes"`

	Session  *Session  `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	Exercise *Exercise `gorm:"foreignKey:ExerciseID" json:"exercise,omitempty"`
}

func (SessionExercise) TableName() string {
	return "session_exercise"
}

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
	AttendanceExcused = "excused"
)

func ValidAttendanceStatus(s string) bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	}
	return false
}

type Attendance struct {
	gorm.Model
	SessionID uint   `gorm:"uniqueIndex:idx_session_attendance;not null" json:"session_id"`
	StudentID uint   `gorm:"uniqueIndex:idx_session_attendance;not null" json:"student_id"`
	Status    string `gorm:"size:20;not null" json:"status"`

	Session *Session `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	Student *Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (Attendance) TableName() string {
	return "session_attendance"
}

package models

import (
	"gorm.io/gorm"
)

type ClassModel struct {
	gorm.Model
	Name        string `gorm:"column:name;size:255;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`
	Discipline  string `gorm:"column:discipline;size:100" json:"discipline"`
	Weekday     string `gorm:"column:weekday;size:20" json:"weekday"`
	StartsAt    string `gorm:"column:starts_at;size:10" json:"starts_at"`
	EndsAt      string `gorm:"column:ends_at;size:10" json:"ends_at"`
	Room        string `gorm:"column:room;size:100" json:"room"`
}

func (ClassModel) TableName() string {
	return "classes"
}

// ClassStudent is the class/student enrollment row. The pair is unique so a
// second attach attempt fails on the index rather than inserting a duplicate.
type ClassStudent struct {
	gorm.Model
	ClassID   uint   `gorm:"uniqueIndex:idx_class_student;not null" json:"class_id"`
	StudentID uint   `gorm:"uniqueIndex:idx_class_student;not null" json:"student_id"`
	Status    string `gorm:"size:50" json:"status"`
	Note      string `gorm:"type:text" json:"note"`

	Class   *ClassModel `gorm:"foreignKey:ClassID" json:"class,omitempty"`
	Student *Student    `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}

func (ClassStudent) TableName() string {
	return "class_student"
}

// ClassTeacher is the class/teacher assignment row.
type ClassTeacher struct {
	gorm.Model
	ClassID   uint   `gorm:"uniqueIndex:idx_class_teacher;not null" json:"class_id"`
	TeacherID uint   `gorm:"uniqueIndex:idx_class_teacher;not null" json:"teacher_id"`
	Role      string `gorm:"size:100" json:"role"`
	IsPrimary bool   `gorm:"default:false" json:"is_primary"`

	Class   *ClassModel `gorm:"foreignKey:ClassID" json:"class,omitempty"`
	Teacher *Teacher    `gorm:"foreignKey:TeacherID" json:"teacher,omitempty"`
}

func (ClassTeacher) TableName() string {
	return "class_teacher"
}

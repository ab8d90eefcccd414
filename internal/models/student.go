package models

import "time"

type Student struct {
	ID       uint `gorm:"primaryKey"`
	SchoolID uint `gorm:"index;uniqueIndex:uniq_school_student"`
	// StudentID is the school-assigned admission number, usually zero-padded
	// digits (e.g. "00001"). Payments reference students by this value.
	StudentID string `gorm:"uniqueIndex:uniq_school_student"`
	FirstName string
	LastName  string
	ClassName string
	IsActive  bool `gorm:"default:true;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

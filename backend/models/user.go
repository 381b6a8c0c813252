package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Username     string `gorm:"unique;not null" json:"username"`
	Email        string `gorm:"unique;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Role         string `gorm:"default:user" json:"role"` // user, instructor, admin
}

func (u *User) IsAdmin() bool { return u.Role == "admin" }

func (u *User) IsInstructor() bool { return u.Role == "instructor" || u.Role == "admin" }

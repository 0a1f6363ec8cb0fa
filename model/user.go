package model

import (
	"time"

	"gorm.io/gorm"
)

// User stores local identity backend accounts. Passwords are bcrypt hashes.
type User struct {
	gorm.Model
	Username    string     `gorm:"uniqueIndex;size:32;not null"`
	DisplayName string     `gorm:"size:64;not null"`
	Email       string     `gorm:"uniqueIndex;size:256;not null"`
	Password    string     `gorm:"size:64;not null"`
	Disabled    bool       `gorm:"default:false;not null"`
	LastLoginAt *time.Time `gorm:"index"`
}

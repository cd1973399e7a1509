package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name       string    `gorm:"size:100;not null" json:"name"`
	Email      string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password   string    `gorm:"size:100;not null" json:"-"`
	Role       UserRole  `gorm:"size:20;default:'student'" json:"role"`
	AdminLevel int       `gorm:"default:0" json:"admin_level"` // >0 可管理测验
	Disabled   bool      `gorm:"default:false" json:"disabled"`
	LastLogin  time.Time `json:"last_login"`
}

func (User) TableName() string {
	return "users"
}

// CanManageQuizzes 管理员角色或 admin_level 达到要求
func (u *User) CanManageQuizzes(minLevel int) bool {
	return u.Role == Admin || (minLevel > 0 && u.AdminLevel >= minLevel)
}

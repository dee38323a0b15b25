package model

import "time"

// 用户角色
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// User represents a registered account.
type User struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Email          string    `json:"email" gorm:"size:191;uniqueIndex;not null"`
	Name           string    `json:"name" gorm:"size:100;uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"size:128;not null"` // hex, never exposed
	Salt           string    `json:"-" gorm:"size:128;not null"` // hex
	Role           string    `json:"role" gorm:"size:16;not null;default:'User'"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user carries the Admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AuthResponse is returned by registration and sign-in.
type AuthResponse struct {
	Token    string `json:"token"`
	UserName string `json:"userName"`
	UserID   string `json:"userId"`
}

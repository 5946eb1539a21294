package domain

import "time"

// User roles
const (
	RoleUser  = "user"  // Regular trader
	RoleAdmin = "admin" // Administrative panel access
)

// User Model
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`                              // Primary key
	Username      string    `gorm:"uniqueIndex;size:64;not null" json:"username"`      // Unique username
	Password      string    `gorm:"not null" json:"-"`                                 // Hashed password, never serialized
	Email         string    `gorm:"uniqueIndex;size:255;not null" json:"email"`        // Unique email
	WalletAddress string    `gorm:"uniqueIndex;size:66;not null" json:"walletAddress"` // Unique wallet address
	Role          string    `gorm:"size:16;default:user" json:"role"`                  // Role: user or admin
	CreatedAt     time.Time `json:"createdAt"`                                         // Creation time
}

// IsAdmin reports whether the user may access the admin panel
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole reports whether role is one of the assignable roles
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

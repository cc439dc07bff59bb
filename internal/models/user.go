package models

import "time"

// Roles mirror the permission groups of the admin UI: sellers record sales
// and manage customers, stock users manage products and stock levels,
// admins can do everything.
const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
	RoleStock  = "stock"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:60;not null;uniqueIndex"`
	Email        string `gorm:"index"`
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"size:20;not null;default:'seller'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanManageStock reports whether the user may create/edit products and
// move stock.
func (u *User) CanManageStock() bool {
	return u.Role == RoleAdmin || u.Role == RoleStock
}

// CanSell reports whether the user may record sales and manage customers.
func (u *User) CanSell() bool {
	return u.Role == RoleAdmin || u.Role == RoleSeller
}

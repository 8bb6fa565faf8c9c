package models

import (
	"database/sql"
	"time"
)

type User struct {
	ID             int64         `db:"id" json:"id"`
	Email          string        `db:"email" json:"email"`
	Name           string        `db:"name" json:"name"`
	RoleID         int           `db:"role_id" json:"role_id"`
	OrganizationID sql.NullInt64 `db:"organization_id" json:"organization_id"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

type Membership struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	Role           string    `db:"role" json:"role"` // Manager, Member
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

const (
	MembershipRoleManager = "Manager"
	MembershipRoleMember  = "Member"
)

// RoleAdminThreshold is the global role level that may act on any user.
const RoleAdminThreshold = 4

package models

import (
	"fmt"
	"time"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// Date is a calendar date serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"`+DateLayout+`"`, string(b))
	if err != nil {
		return fmt.Errorf("invalid date %s: %w", b, err)
	}
	d.Time = t
	return nil
}

// Role represents a staff member's position
type Role string

const (
	RoleStaff   Role = "Staff"
	RoleManager Role = "Manager"
	RoleOwner   Role = "Owner"
)

// Manages reports whether the role may administer other staff and waste
func (r Role) Manages() bool {
	return r == RoleManager || r == RoleOwner
}

// Staff represents a member of staff. The access code is never serialized.
type Staff struct {
	ID               int64     `json:"staff_id"`
	FullName         string    `json:"full_name"`
	AccessCode       string    `json:"-"`
	DOB              Date      `json:"dob"`
	Email            string    `json:"email"`
	JoinedDate       Date      `json:"joined_date"`
	IsActive         bool      `json:"is_active"`
	Role             Role      `json:"role_name"`
	CanToggleChannel bool      `json:"can_toggle_channel"`
	CanWaste         bool      `json:"can_waste"`
	CanRefund        bool      `json:"can_refund"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// LoginRequest represents an access code sign-in
type LoginRequest struct {
	AccessCode string `json:"access_code" validate:"required,len=5,number"`
}

// LogoutRequest represents the end of a till session
type LogoutRequest struct {
	StaffID int64 `json:"staff_id" validate:"required,gt=0"`
}

// CreateStaffRequest represents a staff registration
type CreateStaffRequest struct {
	FullName         string `json:"full_name" validate:"required,max=100,personname"`
	AccessCode       string `json:"access_code" validate:"required,len=5,number"`
	DOB              string `json:"dob" validate:"required,datetime=2006-01-02"`
	Email            string `json:"email" validate:"required,email,max=100"`
	JoinedDate       string `json:"joined_date" validate:"required,datetime=2006-01-02"`
	IsActive         *bool  `json:"is_active" validate:"required"`
	Role             Role   `json:"role_name" validate:"required,oneof=Staff Manager Owner"`
	CanToggleChannel *bool  `json:"can_toggle_channel" validate:"required"`
	CanWaste         *bool  `json:"can_waste" validate:"required"`
	CanRefund        *bool  `json:"can_refund" validate:"required"`
}

// UpdateStaffRequest represents activation and permission changes
type UpdateStaffRequest struct {
	IsActive         *bool `json:"is_active,omitempty"`
	CanToggleChannel *bool `json:"can_toggle_channel,omitempty"`
	CanWaste         *bool `json:"can_waste,omitempty"`
	CanRefund        *bool `json:"can_refund,omitempty"`
}

// PermissionsChanged reports whether any permission flag is set
func (r UpdateStaffRequest) PermissionsChanged() bool {
	return r.CanToggleChannel != nil || r.CanWaste != nil || r.CanRefund != nil
}

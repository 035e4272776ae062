package models

import "time"

// AuditEntry represents one append-only record of a staff action. Actor
// name and role are copied at write time.
type AuditEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	StaffID   int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	Role      string    `json:"role"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
}

// CreateAuditRequest represents a client-side audit append. user_name and
// role are accepted for compatibility but the stored snapshot always comes
// from the staff record.
type CreateAuditRequest struct {
	StaffID  int64  `json:"staff_id" validate:"required,gt=0"`
	Action   string `json:"action" validate:"required,max=100"`
	Details  string `json:"details"`
	UserName string `json:"user_name,omitempty" validate:"omitempty,max=100"`
	Role     string `json:"role,omitempty" validate:"omitempty,max=50"`
}

// Audit action labels
const (
	ActionSignedIn           = "Signed in"
	ActionSignedOut          = "Signed out"
	ActionPriceUpdated       = "Price updated"
	ActionItemPublished      = "Item published"
	ActionItemUnpublished    = "Item unpublished"
	ActionItemArchived       = "Item archived"
	ActionItemRestored       = "Item restored"
	ActionItemAdded          = "Item added"
	ActionChannelToggled     = "Channel toggled"
	ActionWasteRecorded      = "Waste recorded"
	ActionWasteDeleted       = "Waste deleted"
	ActionPaymentCompleted   = "Payment completed"
	ActionOrderCancelled     = "Order cancelled"
	ActionOrderHeld          = "Order held at payment"
	ActionRatesUpdated       = "Rates updated"
	ActionReconciliation     = "EOD cash reconciliation"
	ActionStaffRegistered    = "Staff registered"
	ActionStaffActivated     = "Staff activated"
	ActionStaffDeactivated   = "Staff deactivated"
	ActionPermissionsUpdated = "Permissions updated"
)

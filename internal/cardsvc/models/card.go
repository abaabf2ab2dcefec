package models

import "time"

// Card is one physical NFC loyalty card row. Within an organization at
// most one active row may hold a given uid (partial unique index on
// (organization_id, uid) WHERE is_active). Cards are never hard
// deleted, deactivation flips is_active.
type Card struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Uid            string     `json:"uid"` // hardware-burned identifier
	CustomerID     *string    `json:"customer_id,omitempty"`
	CustomerName   string     `json:"customer_name,omitempty"`  // joined from customers
	CustomerEmail  string     `json:"customer_email,omitempty"` // joined from customers
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

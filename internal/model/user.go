package model

import "time"

// User is keyed by phone number; rows are created lazily on first reference.
type User struct {
	PhoneNumber string    `json:"phone_number"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLogin   time.Time `json:"last_login"`
}

// FinancialSnapshot is the per-owner dashboard aggregate. It is overwritten
// wholesale on every update and never versioned.
type FinancialSnapshot struct {
	OwnerID   string         `json:"owner_id"`
	Income    float64        `json:"income"`
	Savings   float64        `json:"savings"`
	Expenses  float64        `json:"expenses"`
	Extra     map[string]any `json:"extra,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DefaultFinancialSnapshot returns the placeholder figures served before a
// user has completed any advisory call.
func DefaultFinancialSnapshot(ownerID string) *FinancialSnapshot {
	return &FinancialSnapshot{
		OwnerID:  ownerID,
		Income:   75000,
		Savings:  25000,
		Expenses: 50000,
		Extra:    map[string]any{},
	}
}

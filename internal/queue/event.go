// Package queue defines message payloads exchanged over the message broker.
package queue

// ReservationConfirmedEvent is published when a parking reservation is
// successfully created.  It carries enough information for downstream
// consumers to log, notify, or feed analytics without querying the
// primary database.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	SpaceID       uint64 `json:"space_id"`
	SpaceNumber   uint32 `json:"space_number"`
	BranchID      uint64 `json:"branch_id"`
	BranchName    string `json:"branch_name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Hours         int    `json:"hours"`
	TotalCents    uint32 `json:"total_cents"`
	ConfirmedAt   string `json:"confirmed_at"`
}

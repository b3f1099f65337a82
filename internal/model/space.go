package model

import "time"

// Space status values.  The status column is a cache of "the space has
// at least one booking right now" and is only ever written by the
// reservation lifecycle: creating a reservation flips a space to
// RESERVED, cancelling flips it back to AVAILABLE.
const (
	SpaceAvailable = "AVAILABLE" // parking_spaces.status when bookable
	SpaceReserved  = "RESERVED"  // parking_spaces.status when booked
)

// Space describes one bookable parking slot belonging to exactly one
// branch.  Spaces are numbered uniquely within their branch (the same
// number may appear in different branches).
//
// Fields:
//  ID              – primary key identifier.
//  BranchID        – branch to which this space belongs.
//  Number          – per-branch space number.
//  Location        – free-form location label (e.g. "Level 2, Section B").
//  HourlyRateCents – price per hour in cents.
//  Status          – AVAILABLE or RESERVED.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Space struct {
	ID              uint64    `json:"id"`                // parking_spaces.id
	BranchID        uint64    `json:"branch_id"`         // parking_spaces.branch_id
	Number          uint32    `json:"number"`            // parking_spaces.number
	Location        string    `json:"location"`          // parking_spaces.location
	HourlyRateCents uint32    `json:"hourly_rate_cents"` // parking_spaces.hourly_rate_cents
	Status          string    `json:"status"`            // parking_spaces.status
	CreatedAt       time.Time `json:"created_at"`        // parking_spaces.created_at
	UpdatedAt       time.Time `json:"updated_at"`        // parking_spaces.updated_at
}

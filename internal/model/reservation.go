package model

import "time"

// Reservation records a user's claim on a parking space for a fixed
// calendar date, start time-of-day and whole-hour duration.  The end
// time is always derived as start + hours.  Reservation rows are
// created and deleted, never updated in place: cancelling deletes the
// row after flipping the space back to AVAILABLE.
//
// Fields:
//  ID           – primary key identifier.
//  UserID       – user who made the reservation.
//  SpaceID      – parking space being reserved.
//  Date         – calendar date of the booking (DATE column, UTC midnight).
//  StartMinutes – start time-of-day in minutes since midnight.
//  Hours        – duration in whole hours.
//  CreatedAt    – creation timestamp.
type Reservation struct {
	ID           uint64    `json:"id"`            // reservations.id
	UserID       uint64    `json:"user_id"`       // reservations.user_id
	SpaceID      uint64    `json:"space_id"`      // reservations.space_id
	Date         time.Time `json:"date"`          // reservations.res_date
	StartMinutes int       `json:"start_minutes"` // reservations.start_time as minutes
	Hours        int       `json:"hours"`         // reservations.hours
	CreatedAt    time.Time `json:"created_at"`    // reservations.created_at
}

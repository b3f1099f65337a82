package model

import "time"

// Branch represents a physical parking location.  Each branch owns a
// set of parking spaces.  SpaceCount is a derived counter that must
// always equal the number of parking_spaces rows referencing the
// branch; it is adjusted incrementally whenever a space is created,
// deleted or moved to another branch, never recomputed from a scan.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – display name of the branch.
//  Address       – street address.
//  Phone         – contact phone number.
//  Administrator – name of the branch administrator.
//  SpaceCount    – number of spaces registered under this branch.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Branch struct {
	ID            uint64    `json:"id"`             // branches.id
	Name          string    `json:"name"`           // branches.name
	Address       string    `json:"address"`        // branches.address
	Phone         string    `json:"phone"`          // branches.phone
	Administrator string    `json:"administrator"`  // branches.administrator
	SpaceCount    uint32    `json:"space_count"`    // branches.space_count
	CreatedAt     time.Time `json:"created_at"`     // branches.created_at
	UpdatedAt     time.Time `json:"updated_at"`     // branches.updated_at
}

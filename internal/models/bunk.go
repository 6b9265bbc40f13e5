package models

// Bunk represents a fixed group of campers supervised by staff.
// Bunks are roster reference data: seeded at startup, never mutated.
type Bunk struct {
	ID          string `db:"id" json:"id"`
	DisplayName string `db:"display_name" json:"display_name"`
}

// BunkDetail extends Bunk with its staff and camper rosters.
type BunkDetail struct {
	Bunk
	Staff   []Staff  `json:"staff"`
	Campers []Camper `json:"campers"`
}

// Staff represents a staff member assigned to a bunk.
type Staff struct {
	ID     string   `db:"id" json:"id"`
	Name   string   `db:"name" json:"name"`
	BunkID string   `db:"bunk_id" json:"bunk_id"`
	Role   UserRole `db:"role" json:"role"`
}

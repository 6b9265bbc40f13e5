package models

// Camper represents a camper registered in a bunk.
// Code is a short access credential generated once at seed time and
// compared verbatim at login. It is unique across all campers.
type Camper struct {
	ID     string `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	BunkID string `db:"bunk_id" json:"bunk_id"`
	Code   string `db:"code" json:"-"`
}

// CamperWithBunk extends Camper with bunk metadata for responses.
type CamperWithBunk struct {
	Camper
	BunkName string `db:"bunk_name" json:"bunk_name"`
}

package models

// MissionType categorises catalog missions.
type MissionType string

const (
	MissionTypePrayer     MissionType = "prayer"
	MissionTypeLearning   MissionType = "learning"
	MissionTypeMitzvah    MissionType = "mitzvah"
	MissionTypeActivity   MissionType = "activity"
	MissionTypeReflection MissionType = "reflection"
	MissionTypeShabbat    MissionType = "shabbat"
)

// Valid returns true when the type is a supported value.
func (t MissionType) Valid() bool {
	switch t {
	case MissionTypePrayer, MissionTypeLearning, MissionTypeMitzvah,
		MissionTypeActivity, MissionTypeReflection, MissionTypeShabbat:
		return true
	default:
		return false
	}
}

// Mission is a discrete daily task a camper can complete.
// Inactive missions are excluded from validation and from all counts.
type Mission struct {
	ID          string      `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Type        MissionType `db:"type" json:"type"`
	Icon        string      `db:"icon" json:"icon"`
	IsMandatory bool        `db:"is_mandatory" json:"is_mandatory"`
	IsActive    bool        `db:"is_active" json:"is_active"`
}

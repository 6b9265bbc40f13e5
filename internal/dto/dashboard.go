package dto

import "github.com/mendten/camp-mitzvah-tracker-sub001/internal/models"

// QualificationView is the derived daily qualification for a camper.
type QualificationView struct {
	Status    string `json:"status"`
	Qualified bool   `json:"qualified"`
	Count     int    `json:"count"`
	Required  int    `json:"required"`
}

// WeeklyProgressView aggregates qualification over the current week.
type WeeklyProgressView struct {
	DaysQualified  int  `json:"days_qualified"`
	MissionsTotal  int  `json:"missions_total"`
	WeeklyRequired int  `json:"weekly_required"`
	Qualified      bool `json:"qualified"`
}

// CamperDashboardResponse backs the camper home view.
type CamperDashboardResponse struct {
	Camper         models.IdentityInfo `json:"camper"`
	Date           string              `json:"date"`
	Submission     *models.Submission  `json:"submission,omitempty"`
	WorkingSet     []string            `json:"working_set"`
	Today          QualificationView   `json:"today"`
	Weekly         WeeklyProgressView  `json:"weekly"`
	History        []models.Submission `json:"history"`
	MissionCatalog []models.Mission    `json:"mission_catalog"`
}

// StaffCamperRow is one camper's standing in the staff bunk view.
type StaffCamperRow struct {
	CamperID   string             `json:"camper_id"`
	CamperName string             `json:"camper_name"`
	Submission *models.Submission `json:"submission,omitempty"`
	Today      QualificationView  `json:"today"`
}

// StaffDashboardResponse backs the staff bunk view for one date.
type StaffDashboardResponse struct {
	BunkID   string           `json:"bunk_id"`
	BunkName string           `json:"bunk_name"`
	Date     string           `json:"date"`
	Campers  []StaffCamperRow `json:"campers"`
}

// AdminBunkSummary is a per-bunk rollup in the admin view.
type AdminBunkSummary struct {
	BunkName  string `json:"bunk_name"`
	Total     int    `json:"total"`
	Approved  int    `json:"approved"`
	Submitted int    `json:"submitted"`
	Qualified int    `json:"qualified"`
}

// AdminDashboardResponse backs the camp-wide admin view.
type AdminDashboardResponse struct {
	Date           string                `json:"date"`
	TotalCampers   int                   `json:"total_campers"`
	TotalSubmitted int                   `json:"total_submitted"`
	TotalApproved  int                   `json:"total_approved"`
	TotalQualified int                   `json:"total_qualified"`
	Bunks          []AdminBunkSummary    `json:"bunks"`
	Settings       models.SystemSettings `json:"settings"`
}

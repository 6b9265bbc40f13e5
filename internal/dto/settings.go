package dto

// SettingItem is the API view of one setting entry.
type SettingItem struct {
	Key         string `json:"key"`
	Value       string `json:"value"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// UpdateSettingRequest updates a single setting.
type UpdateSettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value" validate:"required"`
}

// BulkUpdateSettingsRequest applies several updates transactionally.
type BulkUpdateSettingsRequest struct {
	Items []UpdateSettingRequest `json:"items" validate:"required,min=1,dive"`
}

package schedule

type PutSettingsRequest struct {
	Settings map[string]string `json:"settings" binding:"required"`
}

type SettingsResponse struct {
	TenantID uint64            `json:"tenant_id"`
	Settings map[string]string `json:"settings"`
}

type WindowResponse struct {
	Level            string `json:"level"`
	Shift            string `json:"shift"`
	Entry            string `json:"entry"` // HH:MM
	Exit             string `json:"exit"`
	ToleranceMinutes int    `json:"tolerance_minutes"`
}

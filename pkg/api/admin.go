package api

import "encoding/json"

type (
	AdminAction string
	AdminTarget string

	// AdminUpdate describes a configuration change made from the admin
	// console and broadcast on the admin channel
	AdminUpdate struct {
		AdminID    string          `json:"adminId"`
		Action     AdminAction     `json:"action"`
		TargetType AdminTarget     `json:"targetType"`
		TargetID   string          `json:"targetId"`
		Details    json.RawMessage `json:"details,omitempty"`
		Timestamp  string          `json:"timestamp"`
	}
)

const (
	ActionCategoryRatesChanged AdminAction = "category-rates-changed"
	ActionZoneClosed           AdminAction = "zone-closed"
	ActionZoneOpened           AdminAction = "zone-opened"
	ActionVacationAdded        AdminAction = "vacation-added"
	ActionRushUpdated          AdminAction = "rush-updated"

	TargetCategory AdminTarget = "category"
	TargetZone     AdminTarget = "zone"
	TargetVacation AdminTarget = "vacation"
	TargetRush     AdminTarget = "rush"
)

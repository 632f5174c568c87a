package api

type (
	// Zone is the full zone state returned by the master data endpoints
	Zone struct {
		ID                      string   `json:"id"`
		Name                    string   `json:"name"`
		CategoryID              string   `json:"categoryId"`
		CategoryName            string   `json:"categoryName,omitempty"`
		GateIDs                 []string `json:"gateIds"`
		TotalSlots              int      `json:"totalSlots"`
		Occupied                int      `json:"occupied"`
		Free                    int      `json:"free"`
		Reserved                int      `json:"reserved"`
		ReservedSlots           int      `json:"reservedSlots"`
		AvailableSlots          int      `json:"availableSlots"`
		AvailableForVisitors    int      `json:"availableForVisitors"`
		AvailableForSubscribers int      `json:"availableForSubscribers"`
		RateNormal              float64  `json:"rateNormal"`
		RateSpecial             float64  `json:"rateSpecial"`
		SpecialActive           bool     `json:"specialActive"`
		Open                    bool     `json:"open"`
		IsVIP                   bool     `json:"isVip,omitempty"`
		IsMaintenance           bool     `json:"isMaintenance,omitempty"`
		IsDisabled              bool     `json:"isDisabled,omitempty"`
		UpdatedAt               string   `json:"updatedAt,omitempty"`
	}

	// ZoneUpdate is the partial zone carried by a zone-update message. Nil
	// fields were not sent and leave the known value untouched
	ZoneUpdate struct {
		ID                      string   `json:"id"`
		Name                    *string  `json:"name,omitempty"`
		CategoryID              *string  `json:"categoryId,omitempty"`
		CategoryName            *string  `json:"categoryName,omitempty"`
		TotalSlots              *int     `json:"totalSlots,omitempty"`
		Occupied                *int     `json:"occupied,omitempty"`
		Free                    *int     `json:"free,omitempty"`
		Reserved                *int     `json:"reserved,omitempty"`
		AvailableForVisitors    *int     `json:"availableForVisitors,omitempty"`
		AvailableForSubscribers *int     `json:"availableForSubscribers,omitempty"`
		RateNormal              *float64 `json:"rateNormal,omitempty"`
		RateSpecial             *float64 `json:"rateSpecial,omitempty"`
		SpecialActive           *bool    `json:"specialActive,omitempty"`
		Open                    *bool    `json:"open,omitempty"`
		IsVIP                   *bool    `json:"isVip,omitempty"`
		IsMaintenance           *bool    `json:"isMaintenance,omitempty"`
		UpdatedAt               *string  `json:"updatedAt,omitempty"`
	}

	// Gate is a physical entry point serving a set of zones
	Gate struct {
		ID       string   `json:"id"`
		Name     string   `json:"name"`
		ZoneIDs  []string `json:"zoneIds"`
		Location string   `json:"location"`
	}
)

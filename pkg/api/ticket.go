package api

type (
	TicketType   string
	TicketStatus string

	// Ticket is a parking ticket issued at check-in
	Ticket struct {
		ID             string       `json:"id"`
		Type           TicketType   `json:"type"`
		ZoneID         string       `json:"zoneId"`
		GateID         string       `json:"gateId"`
		CheckinAt      string       `json:"checkinAt"`
		CheckoutAt     string       `json:"checkoutAt,omitempty"`
		SubscriptionID string       `json:"subscriptionId,omitempty"`
		Status         TicketStatus `json:"status,omitempty"`
	}
)

const (
	TicketVisitor    TicketType = "visitor"
	TicketSubscriber TicketType = "subscriber"

	TicketActive     TicketStatus = "active"
	TicketCheckedOut TicketStatus = "checked-out"
	TicketExpired    TicketStatus = "expired"
)

package api

type (
	// ConnectionState is the raw readiness of the underlying socket
	ConnectionState int

	// ConnectionStatus is the coarse view shown by status indicators
	ConnectionStatus string
)

const (
	StateConnecting ConnectionState = iota
	StateOpen
	StateClosed
)

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusConnecting   ConnectionStatus = "connecting"
	StatusDisconnected ConnectionStatus = "disconnected"
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

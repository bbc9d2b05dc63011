package status

// LinkState tracks the connection lifecycle of a single link. The peer link
// and the backend uplink each hold their own, independently.
type LinkState int

const (
	LinkDisconnected LinkState = iota
	LinkConnecting
	LinkConnected
)

func (l LinkState) String() string {
	switch l {
	case LinkConnected:
		return "Connected"
	case LinkConnecting:
		return "Connecting"
	default:
		return "Disconnected"
	}
}

// HostState maps a link state onto the coarser host-visible indicator state.
func (l LinkState) HostState() State {
	switch l {
	case LinkConnected:
		return StateConnected
	case LinkConnecting:
		return StatePending
	default:
		return StateDisconnected
	}
}

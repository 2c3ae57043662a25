package domain

// Role identifies which peripheral a link talks to.
type Role string

const (
	RoleActuator Role = "actuator"
	RoleLighting Role = "lighting"
)

// Roles lists every peripheral role in dispatch order.
var Roles = []Role{RoleActuator, RoleLighting}

type LinkState int32

const (
	LinkDisconnected LinkState = iota
	LinkConnected
	LinkClosed
)

func (s LinkState) String() string {
	switch s {
	case LinkConnected:
		return "connected"
	case LinkClosed:
		return "closed"
	default:
		return "disconnected"
	}
}

type SendOutcome string

const (
	OutcomeSent    SendOutcome = "sent"
	OutcomeSkipped SendOutcome = "skipped"
	OutcomeFailed  SendOutcome = "failed"
)

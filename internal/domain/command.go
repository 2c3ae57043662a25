package domain

type DispatchKind string

const (
	DispatchBoth         DispatchKind = "both"
	DispatchActuatorOnly DispatchKind = "actuator"
	DispatchLightingOnly DispatchKind = "lighting"
	DispatchHelp         DispatchKind = "help"
	DispatchError        DispatchKind = "error"
	DispatchUnknown      DispatchKind = "unknown"
)

// Dispatch is the classification of one operator command. It is built once
// per input line and never modified afterwards.
type Dispatch struct {
	Kind     DispatchKind
	Actuator string
	Lighting string
	Reason   string
	Raw      string
	// Terminal marks the quit command: the session ends after it.
	Terminal bool
}

func Both(actuator, lighting string) Dispatch {
	return Dispatch{Kind: DispatchBoth, Actuator: actuator, Lighting: lighting}
}

func ActuatorOnly(payload string) Dispatch {
	return Dispatch{Kind: DispatchActuatorOnly, Actuator: payload}
}

func LightingOnly(payload string) Dispatch {
	return Dispatch{Kind: DispatchLightingOnly, Lighting: payload}
}

func Help() Dispatch { return Dispatch{Kind: DispatchHelp} }

func Error(reason string) Dispatch {
	return Dispatch{Kind: DispatchError, Reason: reason}
}

func Unknown() Dispatch { return Dispatch{Kind: DispatchUnknown} }

// Payload returns the payload addressed to role, if any.
func (d Dispatch) Payload(role Role) (string, bool) {
	switch {
	case role == RoleActuator && (d.Kind == DispatchBoth || d.Kind == DispatchActuatorOnly):
		return d.Actuator, true
	case role == RoleLighting && (d.Kind == DispatchBoth || d.Kind == DispatchLightingOnly):
		return d.Lighting, true
	}
	return "", false
}

// Targets reports whether the dispatch carries any device payload.
func (d Dispatch) Targets() bool {
	switch d.Kind {
	case DispatchBoth, DispatchActuatorOnly, DispatchLightingOnly:
		return true
	}
	return false
}

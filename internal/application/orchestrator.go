package application

import (
	"errors"
	"log/slog"
	"time"

	"unified-control/internal/domain"
)

// Delivery is the outcome of one payload addressed to one link.
type Delivery struct {
	Role    domain.Role
	Payload string
	Outcome domain.SendOutcome
	Err     error
}

type Report struct {
	Dispatch   domain.Dispatch
	Deliveries []Delivery
}

// shutdownFrames are sent before the links close: stop the actuator, turn
// the lamps off.
var shutdownFrames = []struct {
	role    domain.Role
	payload string
}{
	{domain.RoleActuator, "s"},
	{domain.RoleLighting, "q"},
}

type Orchestrator struct {
	parser        CommandParser
	links         map[domain.Role]DeviceLink
	recorder      Recorder
	shutdownGrace time.Duration
	logger        *slog.Logger
}

// NewOrchestrator takes ownership of the given links. Roles without a link are
// treated as never connected.
func NewOrchestrator(
	parser CommandParser,
	links []DeviceLink,
	recorder Recorder,
	shutdownGrace time.Duration,
	logger *slog.Logger,
) *Orchestrator {
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	byRole := make(map[domain.Role]DeviceLink, len(links))
	for _, l := range links {
		if l == nil {
			continue
		}
		byRole[l.Role()] = l
	}
	return &Orchestrator{
		parser:        parser,
		links:         byRole,
		recorder:      recorder,
		shutdownGrace: shutdownGrace,
		logger:        logger,
	}
}

func (o *Orchestrator) Parse(raw string) domain.Dispatch {
	d := o.parser.Parse(raw)
	o.recorder.RecordDispatch(d.Kind)
	return d
}

// Dispatch routes d to its target links. Sends are independent: one link
// failing or being absent does not stop the other.
func (o *Orchestrator) Dispatch(d domain.Dispatch) Report {
	report := Report{Dispatch: d}
	if !d.Targets() {
		return report
	}

	for _, role := range domain.Roles {
		payload, ok := d.Payload(role)
		if !ok || payload == "" {
			continue
		}
		report.Deliveries = append(report.Deliveries, o.deliver(role, payload))
	}

	return report
}

func (o *Orchestrator) deliver(role domain.Role, payload string) Delivery {
	del := Delivery{Role: role, Payload: payload}

	link, ok := o.links[role]
	switch {
	case !ok || link.State() != domain.LinkConnected:
		o.logger.Warn("skipped: not connected", "role", role, "payload", payload)
		del.Outcome = domain.OutcomeSkipped
		del.Err = domain.ErrLinkUnavailable
	default:
		err := link.Send(payload)
		switch {
		case err == nil:
			o.logger.Debug("sent", "role", role, "payload", payload)
			del.Outcome = domain.OutcomeSent
		case errors.Is(err, domain.ErrLinkUnavailable):
			o.logger.Warn("skipped: link closed", "role", role, "payload", payload)
			del.Outcome = domain.OutcomeSkipped
			del.Err = err
		default:
			o.logger.Error("send failed", "role", role, "payload", payload, "error", err)
			del.Outcome = domain.OutcomeFailed
			del.Err = err
		}
	}

	o.recorder.RecordSend(role, del.Outcome)
	return del
}

// Shutdown stops the hardware on a best-effort basis and closes every link.
// Errors are logged and swallowed. Calling it again is harmless: closed links
// receive no further frames.
func (o *Orchestrator) Shutdown() {
	sent := false
	for _, frame := range shutdownFrames {
		link, ok := o.links[frame.role]
		if !ok || link.State() != domain.LinkConnected {
			continue
		}
		if err := link.Send(frame.payload); err != nil {
			o.logger.Warn("shutdown frame failed", "role", frame.role, "payload", frame.payload, "error", err)
			continue
		}
		o.logger.Info("shutdown frame sent", "role", frame.role, "payload", frame.payload)
		sent = true
	}

	if sent && o.shutdownGrace > 0 {
		time.Sleep(o.shutdownGrace)
	}

	for _, role := range domain.Roles {
		link, ok := o.links[role]
		if !ok {
			continue
		}
		if err := link.Close(); err != nil {
			o.logger.Debug("closing link", "role", role, "error", err)
		}
	}
}

// LinkStates reports every role, including roles that were never connected.
func (o *Orchestrator) LinkStates() map[domain.Role]domain.LinkState {
	states := make(map[domain.Role]domain.LinkState, len(domain.Roles))
	for _, role := range domain.Roles {
		states[role] = domain.LinkDisconnected
		if link, ok := o.links[role]; ok {
			states[role] = link.State()
		}
	}
	return states
}

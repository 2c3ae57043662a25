package application

import "unified-control/internal/domain"

type Recorder interface {
	RecordDispatch(kind domain.DispatchKind)
	RecordSend(role domain.Role, outcome domain.SendOutcome)
	RecordInbox(role domain.Role, accepted bool)
}

type NoopRecorder struct{}

func (NoopRecorder) RecordDispatch(_ domain.DispatchKind) {}

func (NoopRecorder) RecordSend(_ domain.Role, _ domain.SendOutcome) {}

func (NoopRecorder) RecordInbox(_ domain.Role, _ bool) {}

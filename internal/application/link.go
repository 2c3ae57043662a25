package application

import "unified-control/internal/domain"

// DeviceLink is the write side of one peripheral connection. The Orchestrator
// is its only writer.
type DeviceLink interface {
	Role() domain.Role
	State() domain.LinkState
	Send(payload string) error
	Close() error
}
